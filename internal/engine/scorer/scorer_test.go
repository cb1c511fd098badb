package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestCompute_AllAbsentYieldsZeroNeutral(t *testing.T) {
	result := Compute(Inputs{})
	assert.Equal(t, 0.0, result.Total)
	assert.Equal(t, "neutral", result.Direction)
	assert.False(t, result.Trigger)
}

func TestCompute_MomentumCapAtTwo(t *testing.T) {
	result := Compute(Inputs{
		WhaleNetFlow:   f(-100),
		OnchainNetflow: f(-50),
		VolumeRatio:    f(2.0),
	})
	assert.Equal(t, 2.0, result.Momentum)
	assert.Equal(t, "bullish", result.Direction)
}

func TestCompute_SentimentExtremeFearBands(t *testing.T) {
	result := Compute(Inputs{FearGreedIndex: f(20)})
	assert.Equal(t, 1.0, result.Sentiment)
	assert.Equal(t, "bullish", result.Direction)

	result = Compute(Inputs{FearGreedIndex: f(80)})
	assert.Equal(t, 1.0, result.Sentiment)
	assert.Equal(t, "bearish", result.Direction)
}

func TestCompute_StoryOnlyWhenTriggerOn(t *testing.T) {
	story := &SentimentResult{Sentiment: "bullish", Agreement: 0.8}
	result := Compute(Inputs{TriggerActive: false, StorySentiment: story})
	assert.Equal(t, 0.0, result.Story)

	result = Compute(Inputs{TriggerActive: true, StorySentiment: story})
	assert.InDelta(t, 0.8, result.Story, 1e-9)
	assert.True(t, result.Trigger)
}

func TestCompute_ValueExtremeBands(t *testing.T) {
	result := Compute(Inputs{MVRV: f(4.0)})
	assert.Equal(t, valueMax, result.Value)
	assert.Equal(t, "bearish", result.Direction)

	result = Compute(Inputs{MVRV: f(2.8)})
	assert.Equal(t, valueMax/2, result.Value)

	result = Compute(Inputs{MVRV: f(2.0)})
	assert.Equal(t, 0.0, result.Value)
}

func TestCompute_TotalCappedAtFive(t *testing.T) {
	story := &SentimentResult{Sentiment: "bullish", Agreement: 1.0}
	result := Compute(Inputs{
		TriggerActive:  true,
		WhaleNetFlow:   f(-1),
		OnchainNetflow: f(-1),
		VolumeRatio:    f(5.0),
		FearGreedIndex: f(10),
		LongShortRatio: f(0.1),
		StorySentiment: story,
		MVRV:           f(5.0),
	})
	assert.Equal(t, compositeCap, result.Total)
	assert.Equal(t, "bullish", result.Direction)
}

func TestCompute_SentimentFearGreedTakesPriorityOverLongShort(t *testing.T) {
	result := Compute(Inputs{
		FearGreedIndex: f(20),  // bullish
		LongShortRatio: f(0.9), // bearish, but FG already set the direction
	})
	assert.Equal(t, "bullish", result.Direction)
}

func TestCompute_SentimentLongShortOverridesNeutralFearGreed(t *testing.T) {
	result := Compute(Inputs{
		FearGreedIndex: f(50),  // neutral band, no vote
		LongShortRatio: f(0.9), // bearish
	})
	assert.Equal(t, "bearish", result.Direction)
}

func TestCompute_TieBrokenByCascadeDirection(t *testing.T) {
	result := Compute(Inputs{
		FearGreedIndex: f(20), // bullish vote
		MVRV:           f(4.0), // bearish vote
		CascadeDir:     VoteBearish,
	})
	assert.Equal(t, "bearish", result.Direction)
}
