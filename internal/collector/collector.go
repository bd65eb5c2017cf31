// Package collector drives the author collection loop for one field:
// preload the concept subtree, page through candidate authors, filter, write
// accepted records, and checkpoint the cursor after every page.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rmoretti/fieldharvest/internal/checkpoint"
	"github.com/rmoretti/fieldharvest/internal/filter"
	"github.com/rmoretti/fieldharvest/internal/model"
	"github.com/rmoretti/fieldharvest/internal/openalex"
)

// Sink receives accepted records in API order
type Sink interface {
	Write(model.Record) error
	Flush() error
	Close() error
}

// SinkFactory opens the output sink. It is invoked only after the preload
// step succeeds, so a failed run never creates or touches an output file.
type SinkFactory func() (Sink, error)

// Options configures a collection run for one field
type Options struct {
	FieldID   string
	FieldName string

	PageSize   int
	FlushPages int // flush the sink every N pages; 0 disables periodic flushing

	AuthorsTimeout  time.Duration
	ConceptsTimeout time.Duration
	PreloadDelay    time.Duration
	PreloadMinDelay time.Duration

	// StopRequested is polled at page boundaries only; the in-progress page
	// always completes and its cursor is saved before the loop stops.
	StopRequested func() bool
}

// Collector orchestrates one field's collection run
type Collector struct {
	client      *openalex.Client
	filter      *filter.Filter
	checkpoints *checkpoint.Store
	newSink     SinkFactory
	opts        Options
	log         *zap.Logger
}

// New creates a Collector from its injected components
func New(client *openalex.Client, f *filter.Filter, store *checkpoint.Store, newSink SinkFactory, opts Options, log *zap.Logger) *Collector {
	if opts.StopRequested == nil {
		opts.StopRequested = func() bool { return false }
	}
	return &Collector{
		client:      client,
		filter:      f,
		checkpoints: store,
		newSink:     newSink,
		opts:        opts,
		log:         log,
	}
}

// Run executes the collection loop until the catalog is exhausted or a stop
// is requested. Preload failure is fatal and aborts before the sink is even
// opened; once opened, the sink is closed on every exit path.
func (c *Collector) Run(ctx context.Context) (err error) {
	members, err := c.client.LoadDescendants(ctx, c.opts.FieldID,
		c.opts.ConceptsTimeout, c.opts.PreloadDelay, c.opts.PreloadMinDelay)
	if err != nil {
		return fmt.Errorf("preload field subtree: %w", err)
	}

	out, err := c.newSink()
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	cursor := c.checkpoints.Load()
	announced := cursor != checkpoint.Start
	if announced {
		// A resumed run already reported its total on the fresh run
		c.log.Info("resuming from saved cursor", zap.String("field", c.opts.FieldName))
	}

	scanned, kept, pages := 0, 0, 0

	for {
		page, err := c.client.AuthorsByConcept(ctx, c.opts.FieldID, cursor, c.opts.PageSize, c.opts.AuthorsTimeout)
		if err != nil {
			return err
		}

		if !announced {
			c.log.Info("collection started",
				zap.String("field", c.opts.FieldName),
				zap.Int("candidates", page.Meta.Count))
			announced = true
		}

		if len(page.Results) == 0 {
			break
		}

		keptThisPage := 0
		for _, author := range page.Results {
			decision := c.filter.Evaluate(ctx, author, members)
			if !decision.Accepted {
				continue
			}
			if err := out.Write(model.NewRecord(author, decision, c.opts.FieldName)); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
			keptThisPage++
			kept++
		}
		scanned += len(page.Results)
		pages++

		c.log.Info("page processed",
			zap.Int("scanned", scanned),
			zap.Int("kept", kept),
			zap.Int("kept_this_page", keptThisPage),
			zap.Duration("pace", c.client.Pace()))

		next := page.Meta.NextCursor
		if err := c.checkpoints.Save(next); err != nil {
			return fmt.Errorf("checkpoint cursor: %w", err)
		}
		cursor = next
		if cursor == "" {
			break
		}

		if c.opts.FlushPages > 0 && pages%c.opts.FlushPages == 0 {
			if err := out.Flush(); err != nil {
				return err
			}
		}

		if c.opts.StopRequested() {
			c.log.Info("graceful stop, checkpoint saved",
				zap.String("field", c.opts.FieldName),
				zap.Int("scanned", scanned),
				zap.Int("kept", kept))
			return nil
		}
	}

	c.log.Info("collection complete",
		zap.String("field", c.opts.FieldName),
		zap.Int("scanned", scanned),
		zap.Int("kept", kept))
	return nil
}
