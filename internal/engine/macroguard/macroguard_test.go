package macroguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_NoEventsNeverBlocks(t *testing.T) {
	result := Evaluate(time.Now(), nil)
	assert.False(t, result.Blocked)
}

func TestEvaluate_Tier1BlocksWithinFourHours(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calendar := []Event{{Name: "FOMC", Timestamp: now.Add(3 * time.Hour), Tier: 1}}
	result := Evaluate(now, calendar)
	assert.True(t, result.Blocked)
	assert.Equal(t, "lead_time", result.Reason)
	assert.Equal(t, "FOMC", result.EventName)
}

func TestEvaluate_Tier1AllowsBeyondFourHours(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calendar := []Event{{Name: "FOMC", Timestamp: now.Add(5 * time.Hour), Tier: 1}}
	result := Evaluate(now, calendar)
	assert.False(t, result.Blocked)
}

func TestEvaluate_Tier3BlocksOnlyAtEventTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calendar := []Event{{Name: "CPI", Timestamp: now.Add(time.Minute), Tier: 3}}
	result := Evaluate(now, calendar)
	assert.False(t, result.Blocked)
}

func TestEvaluate_PostEventCooldownTakesPriority(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calendar := []Event{
		{Name: "CPI", Timestamp: now.Add(-30 * time.Minute), Tier: 3},
		{Name: "Next", Timestamp: now.Add(10 * time.Hour), Tier: 3},
	}
	result := Evaluate(now, calendar)
	assert.True(t, result.Blocked)
	assert.Equal(t, "post_event_cooldown", result.Reason)
	assert.Equal(t, "CPI", result.EventName)
	assert.True(t, result.PostEventCooldown)
}

func TestEvaluate_CooldownExpiresAfterOneHour(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calendar := []Event{{Name: "CPI", Timestamp: now.Add(-2 * time.Hour), Tier: 3}}
	result := Evaluate(now, calendar)
	assert.False(t, result.Blocked)
}
