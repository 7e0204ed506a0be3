// Package places adapts the Places API client for use by discovery and
// reporting: outbound rate limiting, a circuit breaker, request metrics, and
// an optional redis cache for place details.
package places

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/watanabekazunori/tonarino/internal/metrics"
	"github.com/watanabekazunori/tonarino/internal/resilience"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

const upstreamName = "places"

// GuardConfig controls the Guard.
type GuardConfig struct {
	// RatePerSec limits outbound calls. Zero or negative disables limiting.
	RatePerSec float64
	Circuit    resilience.CircuitBreakerConfig
}

// Guard decorates a google.Client. Every call waits for the limiter, runs
// through the circuit breaker, and is recorded in metrics. Retryable API
// failures are returned as *resilience.TransientError.
type Guard struct {
	next    google.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewGuard wraps next.
func NewGuard(next google.Client, cfg GuardConfig) *Guard {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	cb := cfg.Circuit
	cb.ShouldTrip = resilience.IsTransient
	userHook := cb.OnStateChange
	cb.OnStateChange = func(from, to resilience.CircuitState) {
		metrics.CircuitState.WithLabelValues(upstreamName).Set(float64(to))
		zap.L().Warn("places: circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if userHook != nil {
			userHook(from, to)
		}
	}

	return &Guard{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewCircuitBreaker(cb),
	}
}

// NearbySearch implements google.Client.
func (g *Guard) NearbySearch(ctx context.Context, req google.NearbySearchRequest) (*google.SearchResponse, error) {
	return guarded(ctx, g, "nearby_search", func(ctx context.Context) (*google.SearchResponse, error) {
		return g.next.NearbySearch(ctx, req)
	})
}

// TextSearch implements google.Client.
func (g *Guard) TextSearch(ctx context.Context, query string) (*google.SearchResponse, error) {
	return guarded(ctx, g, "text_search", func(ctx context.Context) (*google.SearchResponse, error) {
		return g.next.TextSearch(ctx, query)
	})
}

// Details implements google.Client.
func (g *Guard) Details(ctx context.Context, placeID string, fields ...string) (*google.DetailsResponse, error) {
	return guarded(ctx, g, "details", func(ctx context.Context) (*google.DetailsResponse, error) {
		return g.next.Details(ctx, placeID, fields...)
	})
}

// State exposes the breaker state for health reporting.
func (g *Guard) State() resilience.CircuitState {
	return g.breaker.State()
}

func guarded[T any](ctx context.Context, g *Guard, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := g.limiter.Wait(ctx); err != nil {
		metrics.PlacesRequests.WithLabelValues(op, metrics.OutcomeRejected).Inc()
		return zero, eris.Wrapf(err, "places: %s rate limit wait", op)
	}

	start := time.Now()
	val, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return v, classify(err)
	})
	metrics.PlacesDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		metrics.PlacesRequests.WithLabelValues(op, metrics.OutcomeRejected).Inc()
		return zero, eris.Wrapf(err, "places: %s", op)
	case err != nil:
		metrics.PlacesRequests.WithLabelValues(op, metrics.OutcomeError).Inc()
		return zero, err
	}

	metrics.PlacesRequests.WithLabelValues(op, metrics.OutcomeOK).Inc()
	return val, nil
}

// classify marks retryable API failures as transient so the breaker counts
// them and callers can retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *google.APIError
	if errors.As(err, &apiErr) && apiErr.Temporary() {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
