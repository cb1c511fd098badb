// Package llm implements the LLM sentiment client contract: given a
// symbol, a majority vote over 3 Gemini calls, gated by a daily call
// budget persisted in gemini_usage.
//
// No pack example wires a Gemini/genai SDK, so this client speaks the
// REST API directly over net/http — the one ambient piece in this repo
// built on the standard library rather than a third-party client, because
// no such client exists anywhere in the corpus to ground one on.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/cryptostrat/internal/clock"
	"github.com/aristath/cryptostrat/internal/engine/scorer"
	"github.com/aristath/cryptostrat/internal/store"
	"github.com/rs/zerolog"
)

const (
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	votesPerCall   = 3
)

// Client implements scorer.SentimentClient against the Gemini REST API.
type Client struct {
	apiKey      string
	dailyBudget int
	httpClient  *http.Client
	usageRepo   *store.GeminiUsageRepository
	clock       clock.Clock
	log         zerolog.Logger
}

func NewClient(apiKey string, dailyBudget int, usageRepo *store.GeminiUsageRepository, clk clock.Clock, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey, dailyBudget: dailyBudget, usageRepo: usageRepo, clock: clk, log: log,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Sentiment asks Gemini 3 times for a directional read on symbol and
// returns the majority vote feeding the Story sub-score.
func (c *Client) Sentiment(ctx context.Context, symbol string) (scorer.SentimentResult, error) {
	if c.apiKey == "" {
		return scorer.SentimentResult{Sentiment: "neutral", BudgetExceeded: true}, nil
	}

	today := c.clock.Today().Format("2006-01-02")
	used, err := c.usageRepo.Get(today)
	if err != nil {
		return scorer.SentimentResult{}, fmt.Errorf("read gemini usage: %w", err)
	}
	if used+votesPerCall > c.dailyBudget {
		return scorer.SentimentResult{Sentiment: "neutral", BudgetExceeded: true}, nil
	}

	votes := make([]string, 0, votesPerCall)
	for i := 0; i < votesPerCall; i++ {
		vote, err := c.oneCall(ctx, symbol)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Int("call", i).Msg("gemini sentiment call failed")
			continue
		}
		if _, err := c.usageRepo.IncrementAndGet(today); err != nil {
			return scorer.SentimentResult{}, fmt.Errorf("increment gemini usage: %w", err)
		}
		votes = append(votes, vote)
	}

	return tally(votes), nil
}

func (c *Client) oneCall(ctx context.Context, symbol string) (string, error) {
	prompt := fmt.Sprintf(
		"In one word (bullish, bearish, or neutral), what is the near-term market sentiment for %s given current crypto derivatives conditions?",
		symbol,
	)
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{{"parts": []map[string]string{{"text": prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", geminiEndpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct{ Text string } `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "neutral", nil
	}
	return classify(parsed.Candidates[0].Content.Parts[0].Text), nil
}

func classify(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "bullish"):
		return "bullish"
	case strings.Contains(lower, "bearish"):
		return "bearish"
	default:
		return "neutral"
	}
}

func tally(votes []string) scorer.SentimentResult {
	if len(votes) == 0 {
		return scorer.SentimentResult{Sentiment: "neutral"}
	}
	counts := map[string]int{}
	for _, v := range votes {
		counts[v]++
	}
	best := "neutral"
	bestCount := 0
	for sentiment, count := range counts {
		if count > bestCount {
			best, bestCount = sentiment, count
		}
	}
	return scorer.SentimentResult{
		Sentiment:  best,
		Confidence: float64(bestCount) / float64(len(votes)),
		Agreement:  float64(bestCount) / float64(len(votes)),
		CallsUsed:  len(votes),
	}
}
