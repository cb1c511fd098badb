// Package scorer implements the SSM Scorer engine: four
// weighted sub-scores (Momentum, Sentiment, Story, Value) gated by the
// Dynamic Threshold's Trigger, combined into a composite 0-5 score plus a
// majority-vote direction.
package scorer

import "context"

const (
	momentumMax  = 2.0
	sentimentMax = 1.5
	storyMax     = 1.0
	valueMax     = 0.5
	compositeCap = 5.0
)

// Vote is a directional lean contributed by one sub-score.
type Vote int

const (
	VoteNeutral Vote = 0
	VoteBullish Vote = 1
	VoteBearish Vote = -1
)

// SentimentClient is the LLM sentiment contract: given a symbol,
// returns a majority vote over 3 calls. Implementations gate on a daily
// call budget and return BudgetExceeded=true with Sentiment=neutral once
// spent; the backtest implementation stubs this out entirely.
type SentimentClient interface {
	Sentiment(ctx context.Context, symbol string) (SentimentResult, error)
}

// SentimentResult is one LLM sentiment call's outcome.
type SentimentResult struct {
	Sentiment      string // "bullish", "bearish", "neutral"
	Confidence     float64
	Agreement      float64
	CallsUsed      int
	BudgetExceeded bool
}

// Inputs bundles every upstream signal the scorer reads. Zero-value fields
// (e.g. a nil *float64) are treated as absent and contribute no vote.
type Inputs struct {
	TriggerActive   bool
	CascadeDir      Vote // direction bias from threshold_signals, used as tiebreaker
	WhaleNetFlow    *float64
	OnchainNetflow  *float64
	VolumeRatio     *float64 // today/avg; bonus at >= 1.3x, in whichever direction the flows already lean
	FearGreedIndex  *float64
	LongShortRatio  *float64
	MVRV            *float64
	StorySentiment  *SentimentResult // nil when Trigger is OFF (Story is not computed)
}

// Result is one SSM Scorer output.
type Result struct {
	Trigger   bool
	Momentum  float64
	Sentiment float64
	Story     float64
	Value     float64
	Total     float64
	Direction string // "bullish", "bearish", or "neutral"
}

// Compute evaluates the composite score from already-fetched inputs. The
// Story sub-score is computed by the caller (it requires an LLM round
// trip) and passed in via Inputs.StorySentiment; Compute never calls out.
func Compute(in Inputs) Result {
	momentum, momentumVote := momentumScore(in)
	sentiment, sentimentVote := sentimentScore(in)
	story, storyVote := storyScore(in)
	value, valueVotes := valueScore(in)

	total := momentum + sentiment + story + value
	if total > compositeCap {
		total = compositeCap
	}

	votes := append([]Vote{momentumVote, sentimentVote, storyVote}, valueVotes...)

	direction := majorityDirection(votes, in.CascadeDir)

	return Result{
		Trigger:   in.TriggerActive,
		Momentum:  momentum,
		Sentiment: sentiment,
		Story:     story,
		Value:     value,
		Total:     total,
		Direction: direction,
	}
}

func momentumScore(in Inputs) (float64, Vote) {
	var score float64
	var vote Vote

	if in.WhaleNetFlow != nil {
		score += 1.0
		vote = voteFromSign(vote, *in.WhaleNetFlow < 0) // net outflow from exchanges -> bullish
	}
	if in.OnchainNetflow != nil {
		score += 1.0
		vote = voteFromSign(vote, *in.OnchainNetflow < 0)
	}
	if in.VolumeRatio != nil && *in.VolumeRatio >= 1.3 {
		score += 0.5
	}

	return capAt(score, momentumMax), vote
}

// sentimentScore resolves to a single direction: Fear & Greed sets it, and
// the Long/Short ratio only overrides when Fear & Greed left it neutral.
func sentimentScore(in Inputs) (float64, Vote) {
	var score float64
	vote := VoteNeutral

	if in.FearGreedIndex != nil {
		fg := *in.FearGreedIndex
		switch {
		case fg <= 25:
			score += 1.0
			vote = VoteBullish
		case fg <= 40:
			score += 0.5
			vote = VoteBullish
		case fg >= 76:
			score += 1.0
			vote = VoteBearish
		case fg >= 61:
			score += 0.5
			vote = VoteBearish
		}
	}

	if in.LongShortRatio != nil {
		ls := *in.LongShortRatio
		switch {
		case ls >= 0.75:
			score += 0.5
			if vote == VoteNeutral {
				vote = VoteBearish
			}
		case ls <= 0.25:
			score += 0.5
			if vote == VoteNeutral {
				vote = VoteBullish
			}
		}
	}

	return capAt(score, sentimentMax), vote
}

func storyScore(in Inputs) (float64, Vote) {
	if !in.TriggerActive || in.StorySentiment == nil {
		return 0, VoteNeutral
	}
	s := in.StorySentiment
	score := capAt(s.Agreement*storyMax, storyMax)

	switch s.Sentiment {
	case "bullish":
		return score, VoteBullish
	case "bearish":
		return score, VoteBearish
	default:
		return score, VoteNeutral
	}
}

func valueScore(in Inputs) (float64, []Vote) {
	if in.MVRV == nil {
		return 0, nil
	}
	mvrv := *in.MVRV
	switch {
	case mvrv > 3.5 || mvrv < 1.0:
		return valueMax, []Vote{extremeVote(mvrv)}
	case mvrv > 2.5 || mvrv < 1.5:
		return valueMax / 2, []Vote{extremeVote(mvrv)}
	default:
		return 0, nil
	}
}

// extremeVote: high MVRV (overvalued) votes bearish, low MVRV votes bullish.
func extremeVote(mvrv float64) Vote {
	if mvrv > 2.5 {
		return VoteBearish
	}
	return VoteBullish
}

// voteFromSign folds an outflow-is-bullish signal into an accumulated vote,
// leaving an already-set vote untouched (first signal wins within Momentum).
func voteFromSign(existing Vote, bullish bool) Vote {
	if existing != VoteNeutral {
		return existing
	}
	if bullish {
		return VoteBullish
	}
	return VoteBearish
}

func majorityDirection(votes []Vote, cascadeDir Vote) string {
	var bulls, bears int
	for _, v := range votes {
		switch v {
		case VoteBullish:
			bulls++
		case VoteBearish:
			bears++
		}
	}

	switch {
	case bulls > bears:
		return "bullish"
	case bears > bulls:
		return "bearish"
	case bulls == 0 && bears == 0:
		return "neutral"
	default:
		// Tied non-zero votes: cascade direction breaks the tie.
		switch cascadeDir {
		case VoteBullish:
			return "bullish"
		case VoteBearish:
			return "bearish"
		default:
			return "neutral"
		}
	}
}

func capAt(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
