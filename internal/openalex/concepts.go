package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rmoretti/fieldharvest/internal/model"
)

// preloadPageSize is the per-page size for the id-only concept listing
const preloadPageSize = 200

// LoadDescendants enumerates every concept in the subtree rooted at rootID
// (all nodes whose ancestor is rootID, plus the root itself) and returns the
// membership set. The set is built once per run so the relevance filter never
// needs a per-author network call.
//
// A small courtesy delay runs between pages, decaying toward minDelay on each
// success; 429/5xx handling happens inside the client. Any error is fatal:
// the caller must never operate on a partial subtree.
func (c *Client) LoadDescendants(ctx context.Context, rootID string, timeout, delay, minDelay time.Duration) (model.ConceptSet, error) {
	members := model.ConceptSet{}
	members.Add(model.ShortID(rootID))

	cursor := checkpointStart
	c.log.Info("preloading concept subtree", zap.String("root", rootID))

	for {
		query := url.Values{
			"filter":   {"ancestors.id:" + rootID},
			"per-page": {strconv.Itoa(preloadPageSize)},
			"cursor":   {cursor},
			"select":   {"id"},
		}

		var page conceptsPage
		if err := c.Get(ctx, "/concepts", query, timeout, &page); err != nil {
			return nil, fmt.Errorf("load descendants of %s: %w", rootID, err)
		}

		if len(page.Results) == 0 {
			break
		}
		for _, r := range page.Results {
			members.Add(model.ShortID(r.ID))
		}

		cursor = page.Meta.NextCursor
		if cursor == "" {
			break
		}

		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
		if next := time.Duration(float64(delay) * c.pace.cooldown); next >= minDelay {
			delay = next
		} else {
			delay = minDelay
		}
	}

	c.log.Info("concept subtree loaded",
		zap.String("root", rootID),
		zap.Int("concepts", len(members)))
	return members, nil
}

// checkpointStart is the cursor denoting the start of a paginated sequence
const checkpointStart = "*"
