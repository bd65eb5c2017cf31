package openalex

import (
	"time"

	"github.com/rmoretti/fieldharvest/internal/model"
)

// PaceState is the adaptive inter-request delay controller. The delay grows
// multiplicatively on throttling and server errors and shrinks on sustained
// success, clamped to [min, max]. The steady state oscillates near the rate
// the server tolerates.
//
// Only the Client mutates it; no locking because requests are strictly
// sequential.
type PaceState struct {
	sleep    time.Duration
	min, max time.Duration
	backoff  float64
	cooldown float64
}

// NewPaceState creates pacing state from configuration
func NewPaceState(cfg model.PacingConfig) *PaceState {
	p := &PaceState{
		sleep:    cfg.Initial,
		min:      cfg.Min,
		max:      cfg.Max,
		backoff:  cfg.BackoffMultiplier,
		cooldown: cfg.CooldownMultiplier,
	}
	p.sleep = p.clamp(p.sleep)
	return p
}

// Current returns the delay to honor before the next request
func (p *PaceState) Current() time.Duration {
	return p.sleep
}

// Backoff increases the delay after a throttled or failed request
func (p *PaceState) Backoff() {
	p.sleep = p.clamp(time.Duration(float64(p.sleep) * p.backoff))
}

// Cooldown decreases the delay after a clean success
func (p *PaceState) Cooldown() {
	p.sleep = p.clamp(time.Duration(float64(p.sleep) * p.cooldown))
}

func (p *PaceState) clamp(d time.Duration) time.Duration {
	if d < p.min {
		return p.min
	}
	if d > p.max {
		return p.max
	}
	return d
}
