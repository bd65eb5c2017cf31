package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rmoretti/fieldharvest/internal/cache"
	"github.com/rmoretti/fieldharvest/internal/checkpoint"
	"github.com/rmoretti/fieldharvest/internal/collector"
	"github.com/rmoretti/fieldharvest/internal/filter"
	"github.com/rmoretti/fieldharvest/internal/logging"
	"github.com/rmoretti/fieldharvest/internal/model"
	"github.com/rmoretti/fieldharvest/internal/openalex"
	"github.com/rmoretti/fieldharvest/internal/sink"
)

// newLogger builds the run logger from config and the verbose flag
func newLogger(cfg model.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Development || verbose)
}

// watchInterrupts registers the interrupt handler and returns the stop flag
// predicate polled at page boundaries. The first signal flips the flag and
// announces the graceful stop; repeated signals have no further effect.
func watchInterrupts(log *zap.Logger) func() bool {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	var stopped atomic.Bool
	go func() {
		for range ch {
			if stopped.CompareAndSwap(false, true) {
				log.Warn("interrupt received, finishing current page and checkpointing")
			}
		}
	}()
	return stopped.Load
}

// runField executes one field's collection run with freshly built components.
// The count cache and pacing state are scoped to the run: memoized counts are
// only valid within a single pass.
func runField(ctx context.Context, cfg model.Config, field model.FieldConfig, log *zap.Logger, stop func() bool) error {
	pace := openalex.NewPaceState(cfg.Pacing)
	client := openalex.NewClient(cfg.API, pace, log)
	counter := openalex.NewCounter(client, cache.NewMemoryCounts(), cfg.API.WorksTimeout, cfg.Pacing.CountDelay, log)
	flt := filter.New(field.EffectiveFilter(cfg.Filter), field.ID, counter)
	store := checkpoint.New(field.CursorPath(cfg.Output.Dir))

	// Opened by the collector only after the preload succeeds, so a field
	// that fails up front leaves no empty CSV and no dangling handle.
	newSink := func() (collector.Sink, error) {
		return sink.NewCSV(field.OutputPath(cfg.Output.Dir))
	}

	col := collector.New(client, flt, store, newSink, collector.Options{
		FieldID:         field.ID,
		FieldName:       field.Name,
		PageSize:        cfg.API.PageSize,
		FlushPages:      cfg.Output.FlushPages,
		AuthorsTimeout:  cfg.API.AuthorsTimeout,
		ConceptsTimeout: cfg.API.ConceptsTimeout,
		PreloadDelay:    cfg.Pacing.PreloadDelay,
		PreloadMinDelay: cfg.Pacing.Min,
		StopRequested:   stop,
	}, log)

	return col.Run(ctx)
}

// sleepUnlessStopped pauses between fields, returning early when a stop is
// requested or the context ends.
func sleepUnlessStopped(ctx context.Context, cfg model.Config, stop func() bool) error {
	const step = 250 * time.Millisecond

	remaining := cfg.Pacing.PauseBetweenFields
	for remaining > 0 && !stop() {
		d := step
		if remaining < d {
			d = remaining
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		remaining -= d
	}
	return nil
}
