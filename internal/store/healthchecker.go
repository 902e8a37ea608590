package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/metrics"
)

// HealthChecker monitors store reachability via periodic pings so callers can
// degrade without waiting on a dead database.
type HealthChecker struct {
	store        Store
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewHealthChecker creates a new store health checker.
func NewHealthChecker(store Store, log zerolog.Logger, probeTimeout time.Duration) *HealthChecker {
	hc := &HealthChecker{
		store:        store,
		log:          log,
		probeTimeout: probeTimeout,
	}
	// Optimistic until the first probe says otherwise; the store was opened successfully.
	hc.healthy.Store(1)
	return hc
}

// Name returns the checker name.
func (hc *HealthChecker) Name() string {
	return "store"
}

// IsHealthy returns the cached health status (non-blocking).
func (hc *HealthChecker) IsHealthy() bool {
	return hc.healthy.Load() == 1
}

// Start begins periodic health checking and blocks until ctx is cancelled.
func (hc *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.Check(ctx)
		}
	}
}

// Check runs one probe and updates the cached status.
func (hc *HealthChecker) Check(ctx context.Context) bool {
	to := hc.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	if err := hc.store.HealthPing(checkCtx); err != nil {
		metrics.StoreHealthy.Set(0)
		if hc.healthy.Swap(0) == 1 {
			hc.log.Error().Stack().
				Str("checker", hc.Name()).
				Err(err).
				Msg("store health check failed")
		}
		return false
	}
	metrics.StoreHealthy.Set(1)
	if hc.healthy.Swap(1) == 0 {
		hc.log.Info().Str("checker", hc.Name()).Msg("store healthy again")
	}
	return true
}
