// Package collector implements the external data-collection contracts:
// a narrow Collector interface per data series so the scheduler
// drives them uniformly, REST collectors wrapped in a circuit breaker and
// a rate limiter, and one long-running websocket stream for liquidation
// events.
package collector

import (
	"context"
	"errors"
)

// ErrProviderUnconfigured is returned by CollectOnce when the collector's
// required API key is absent from configuration. The live server's collector
// jobs treat it as a quiet skip, not a failure — absence disables the
// respective collector but the core still runs with stubbed engine outputs.
var ErrProviderUnconfigured = errors.New("collector: provider not configured")

// Collector is one data series' periodic fetch-and-persist step.
type Collector interface {
	Name() string
	CollectOnce(ctx context.Context) error
}
