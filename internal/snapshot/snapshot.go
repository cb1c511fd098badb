// Package snapshot periodically exports paper_summary and strategy_state
// rows to S3-compatible storage for off-box backup, as a msgpack-encoded
// row snapshot rather than a full database archive.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/cryptostrat/internal/store"
)

// Snapshot is one point-in-time export of every tracked symbol's paper
// trading state.
type Snapshot struct {
	GeneratedAt int64
	Symbols     map[string]SymbolSnapshot
}

// SymbolSnapshot is one symbol's exported rows.
type SymbolSnapshot struct {
	Summaries []store.PaperSummary
	Strategy  *store.StrategyState
}

// Exporter uploads snapshots to an S3-compatible bucket.
type Exporter struct {
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// NewExporter builds an Exporter against bucket in region. Static
// credentials are used when accessKeyID is non-empty; otherwise the
// default AWS credential chain (environment, shared config, instance
// role) applies, matching how every other optional provider in this
// module falls back to an unconfigured/default state rather than failing
// at startup.
func NewExporter(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string, log zerolog.Logger) (*Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &Exporter{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		log:      log.With().Str("component", "snapshot_exporter").Logger(),
	}, nil
}

// Export builds a Snapshot for every symbol and uploads it as a single
// msgpack object keyed by its generation timestamp.
func (e *Exporter) Export(
	ctx context.Context,
	symbols []string,
	summaries *store.PaperSummaryRepository,
	strategy *store.StrategyStateRepository,
	now time.Time,
) error {
	snap, err := buildSnapshot(symbols, summaries, strategy, now)
	if err != nil {
		return err
	}

	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s.msgpack", now.UTC().Format("2006-01-02T150405Z"))
	_, err = e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot to s3: %w", err)
	}

	e.log.Info().Str("key", key).Int("symbols", len(symbols)).Int("bytes", len(payload)).Msg("snapshot exported")
	return nil
}

func buildSnapshot(
	symbols []string,
	summaries *store.PaperSummaryRepository,
	strategy *store.StrategyStateRepository,
	now time.Time,
) (Snapshot, error) {
	snap := Snapshot{GeneratedAt: now.Unix(), Symbols: make(map[string]SymbolSnapshot, len(symbols))}
	for _, sym := range symbols {
		sumRows, err := summaries.ForSymbol(sym)
		if err != nil {
			return Snapshot{}, fmt.Errorf("summaries for %s: %w", sym, err)
		}
		state, err := strategy.Latest(sym)
		if err != nil {
			return Snapshot{}, fmt.Errorf("strategy state for %s: %w", sym, err)
		}
		snap.Symbols[sym] = SymbolSnapshot{Summaries: sumRows, Strategy: state}
	}
	return snap, nil
}
