package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// authorSelect lists the author fields requested per page: everything the
// output schema and the relevance filter need, nothing more.
const authorSelect = "id,display_name,orcid,last_known_institutions,works_count,cited_by_count,x_concepts"

// AuthorsByConcept fetches one page of authors tagged (directly or
// indirectly) with the given concept. This API-level filter is a coarse
// prefilter; the relevance filter makes the authoritative decision.
func (c *Client) AuthorsByConcept(ctx context.Context, conceptID, cursor string, pageSize int, timeout time.Duration) (*AuthorsPage, error) {
	query := url.Values{
		"filter":   {"x_concepts.id:" + conceptID},
		"per-page": {strconv.Itoa(pageSize)},
		"cursor":   {cursor},
		"select":   {authorSelect},
	}

	var page AuthorsPage
	if err := c.Get(ctx, "/authors", query, timeout, &page); err != nil {
		return nil, fmt.Errorf("fetch authors page: %w", err)
	}
	return &page, nil
}
