// Package macroguard implements the Macro Guard: blocks trading around
// tiered calendar events (scheduled releases, FOMC, etc.) and during a
// post-event cooldown window.
package macroguard

import "time"

// Tier lead times.
const (
	tier1LeadTime = 4 * time.Hour
	tier2LeadTime = 2 * time.Hour
	tier3LeadTime = 0

	postEventCooldown = time.Hour // 3600s trailing observation window
)

// Event is one calendar entry.
type Event struct {
	Name      string
	Timestamp time.Time
	Tier      int // 1, 2, or 3
}

// Result is one Macro Guard evaluation.
type Result struct {
	Blocked           bool
	Reason            string // "lead_time" or "post_event_cooldown"
	EventName         string
	HoursUntil        float64
	Tier              int
	PostEventCooldown bool
}

// Evaluate scans the calendar against now and returns the guard state.
// Calendar need not be sorted; Evaluate finds the nearest future event and
// the most recent past event independently.
func Evaluate(now time.Time, calendar []Event) Result {
	if post, ok := nearestPastWithinCooldown(now, calendar); ok {
		return Result{
			Blocked:           true,
			Reason:            "post_event_cooldown",
			EventName:         post.Name,
			HoursUntil:        0,
			Tier:              post.Tier,
			PostEventCooldown: true,
		}
	}

	future, ok := nearestFuture(now, calendar)
	if !ok {
		return Result{Blocked: false}
	}

	leadTime := leadTimeForTier(future.Tier)
	untilEvent := future.Timestamp.Sub(now)
	hoursUntil := untilEvent.Hours()

	if untilEvent <= leadTime {
		return Result{
			Blocked:    true,
			Reason:     "lead_time",
			EventName:  future.Name,
			HoursUntil: hoursUntil,
			Tier:       future.Tier,
		}
	}

	return Result{
		Blocked:    false,
		EventName:  future.Name,
		HoursUntil: hoursUntil,
		Tier:       future.Tier,
	}
}

func leadTimeForTier(tier int) time.Duration {
	switch tier {
	case 1:
		return tier1LeadTime
	case 2:
		return tier2LeadTime
	default:
		return tier3LeadTime
	}
}

func nearestFuture(now time.Time, calendar []Event) (Event, bool) {
	var best Event
	found := false
	for _, e := range calendar {
		if e.Timestamp.Before(now) {
			continue
		}
		if !found || e.Timestamp.Before(best.Timestamp) {
			best = e
			found = true
		}
	}
	return best, found
}

func nearestPastWithinCooldown(now time.Time, calendar []Event) (Event, bool) {
	var best Event
	found := false
	for _, e := range calendar {
		if e.Timestamp.After(now) {
			continue
		}
		if now.Sub(e.Timestamp) > postEventCooldown {
			continue
		}
		if !found || e.Timestamp.After(best.Timestamp) {
			best = e
			found = true
		}
	}
	return best, found
}
