package llm

import (
	"context"

	"github.com/aristath/cryptostrat/internal/engine/scorer"
)

// NeutralStub always returns a neutral, zero-cost sentiment — the Story
// sub-score contribution used in backtests, where no historical LLM replay
// exists.
type NeutralStub struct{}

func (NeutralStub) Sentiment(ctx context.Context, symbol string) (scorer.SentimentResult, error) {
	return scorer.SentimentResult{Sentiment: "neutral"}, nil
}
