package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// RESTClient is a rate-limited, circuit-broken HTTP client shared by every
// REST collector. The breaker trips on 3 consecutive failures or a >5%
// failure rate over 20+ requests; every request also waits on a
// rate.Limiter before it goes out.
type RESTClient struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewRESTClient builds a client allowing ratePerSec requests/second, with
// a burst of int(ratePerSec)+1, named for the circuit breaker's metrics.
func NewRESTClient(name string, ratePerSec float64) *RESTClient {
	settings := gobreaker.Settings{Name: name}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	return &RESTClient{
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// GetJSON rate-limits, circuit-breaks, and decodes a GET request's JSON
// body into out. A tripped breaker or a rate-limiter context cancellation
// surfaces as a plain error for the caller to log and skip.
func (c *RESTClient) GetJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}
