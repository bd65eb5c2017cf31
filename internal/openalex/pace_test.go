package openalex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmoretti/fieldharvest/internal/model"
)

func testPacing() model.PacingConfig {
	return model.PacingConfig{
		Initial:            150 * time.Millisecond,
		Min:                50 * time.Millisecond,
		Max:                1250 * time.Millisecond,
		BackoffMultiplier:  1.5,
		CooldownMultiplier: 0.9,
	}
}

func TestPaceState_BackoffGrowsAndClamps(t *testing.T) {
	p := NewPaceState(testPacing())

	prev := p.Current()
	for i := 0; i < 20; i++ {
		p.Backoff()
		assert.GreaterOrEqual(t, p.Current(), prev)
		prev = p.Current()
	}
	assert.Equal(t, 1250*time.Millisecond, p.Current())
}

func TestPaceState_CooldownShrinksAndClamps(t *testing.T) {
	p := NewPaceState(testPacing())

	for i := 0; i < 50; i++ {
		p.Cooldown()
	}
	assert.Equal(t, 50*time.Millisecond, p.Current())
}

func TestPaceState_StaysWithinBoundsUnderAnySequence(t *testing.T) {
	cfg := testPacing()
	p := NewPaceState(cfg)

	// Alternate pathological runs of failures and successes
	seq := []int{5, -12, 30, -2, 1, -40, 17}
	for _, n := range seq {
		if n > 0 {
			for i := 0; i < n; i++ {
				p.Backoff()
			}
		} else {
			for i := 0; i < -n; i++ {
				p.Cooldown()
			}
		}
		assert.GreaterOrEqual(t, p.Current(), cfg.Min)
		assert.LessOrEqual(t, p.Current(), cfg.Max)
	}
}

func TestPaceState_InitialOutsideBoundsIsClamped(t *testing.T) {
	cfg := testPacing()
	cfg.Initial = 10 * time.Second
	p := NewPaceState(cfg)
	assert.Equal(t, cfg.Max, p.Current())
}
