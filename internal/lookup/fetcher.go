package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/drug-repurposing-engine/internal/domain"
)

// ResilientFetcher wraps the external instrument-discovery collaborator with
// a circuit breaker and a rate limiter. Breaker trips and limiter rejections
// surface as fetch errors, which the store degrades to empty mappings.
type ResilientFetcher struct {
	inner   Fetcher
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	log     *logrus.Logger
}

// NewResilientFetcher wraps inner with breaker and rate-limit protection
func NewResilientFetcher(inner Fetcher, cfg domain.LookupConfig, logger *logrus.Logger) *ResilientFetcher {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.FetchRateLimit
	if limit == 0 {
		limit = 5
	}
	burst := cfg.FetchBurst
	if burst == 0 {
		burst = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "InstrumentFetch",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientFetcher{
		inner:   inner,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		timeout: timeout,
		log:     logger,
	}
}

// FetchInstruments implements Fetcher
func (f *ResilientFetcher) FetchInstruments(ctx context.Context, disease string) (map[string]float64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.inner.FetchInstruments(fetchCtx, disease)
	})
	if err != nil {
		return nil, err
	}

	scores, _ := result.(map[string]float64)
	return scores, nil
}
