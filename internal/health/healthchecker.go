// Package health provides cached dependency health checking for the service.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Checker probes one dependency and caches the result so HTTP handlers never
// block on a live probe.
type Checker struct {
	name         string
	pinger       HealthPinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewChecker builds a checker for one dependency. The checker reports
// unhealthy until the first successful probe.
func NewChecker(name string, pinger HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *Checker {
	c := &Checker{name: name, pinger: pinger, log: log, probeTimeout: probeTimeout}
	c.healthy.Store(0)
	return c
}

// Name returns the checker's dependency name.
func (c *Checker) Name() string { return c.name }

// IsHealthy returns the cached health status without probing.
func (c *Checker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start probes immediately and then on every interval tick until ctx ends.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probe(ctx)
		}
	}
}

func (c *Checker) probe(ctx context.Context) {
	to := c.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	prev := c.healthy.Load()
	if err := c.pinger.HealthPing(probeCtx); err != nil {
		c.healthy.Store(0)
		if prev == 1 {
			c.log.Error().Str("checker", c.name).Err(err).Msg("dependency health: DOWN")
		}
		return
	}
	c.healthy.Store(1)
	if prev == 0 {
		c.log.Info().Str("checker", c.name).Msg("dependency health: UP")
	}
}
