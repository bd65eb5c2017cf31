package openalex

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rmoretti/fieldharvest/internal/cache"
	"github.com/rmoretti/fieldharvest/internal/model"
)

// Counter resolves cardinality-only queries against /works. Every query asks
// for a single record and reads only meta.count. Results are memoized for the
// process lifetime.
//
// Failures degrade to a zero count instead of propagating, so one transient
// hiccup cannot abort an outer filter decision; the cost is a possible
// under-count for that author.
type Counter struct {
	client  *Client
	counts  cache.Counts
	timeout time.Duration
	delay   time.Duration // courtesy delay after each uncached lookup
	log     *zap.Logger
}

// NewCounter creates a Counter backed by the given count cache
func NewCounter(client *Client, counts cache.Counts, timeout, delay time.Duration, log *zap.Logger) *Counter {
	return &Counter{
		client:  client,
		counts:  counts,
		timeout: timeout,
		delay:   delay,
		log:     log,
	}
}

// TotalWorks counts all works of the author
func (c *Counter) TotalWorks(ctx context.Context, authorID string) int64 {
	id := model.ShortID(authorID)
	if id == "" {
		return 0
	}
	return c.cached(ctx, cache.Key("total", id), "authorships.author.id:"+id)
}

// FieldWorks counts the author's works tagged with the field concept
func (c *Counter) FieldWorks(ctx context.Context, authorID, fieldID string) int64 {
	id := model.ShortID(authorID)
	fid := model.ShortID(fieldID)
	if id == "" || fid == "" {
		return 0
	}
	return c.cached(ctx, cache.Key("field", id, fid), "authorships.author.id:"+id+",concepts.id:"+fid)
}

// ShareInField reports whether the author's in-field share of total works
// meets minShare. A zero or unknown total fails the bar: the ratio is
// undefined, not a pass.
func (c *Counter) ShareInField(ctx context.Context, authorID, fieldID string, minShare float64) bool {
	total := c.TotalWorks(ctx, authorID)
	if total <= 0 {
		return false
	}
	field := c.FieldWorks(ctx, authorID, fieldID)
	return float64(field)/float64(total) >= minShare
}

func (c *Counter) cached(ctx context.Context, key, filter string) int64 {
	if n, ok := c.counts.Get(key); ok {
		return n
	}
	n := c.countWorks(ctx, filter)
	c.counts.Set(key, n)
	if err := sleepCtx(ctx, c.delay); err != nil {
		return n
	}
	return n
}

// countWorks asks /works for one record and reads only the total count.
// Returns 0 on any failure.
func (c *Counter) countWorks(ctx context.Context, filter string) int64 {
	query := url.Values{
		"filter":   {filter},
		"per-page": {"1"},
		"select":   {"id"},
	}

	var page countPage
	if err := c.client.Get(ctx, "/works", query, c.timeout, &page); err != nil {
		c.log.Warn("count query failed, treating as zero",
			zap.String("filter", filter),
			zap.Error(err))
		return 0
	}
	return int64(page.Meta.Count)
}
