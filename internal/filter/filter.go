// Package filter implements the multi-criteria relevance filter that decides
// whether an author's topical profile belongs to the target field.
package filter

import (
	"context"
	"sort"

	"github.com/rmoretti/fieldharvest/internal/model"
)

// ShareChecker answers the borderline works-share question. Satisfied by
// openalex.Counter.
type ShareChecker interface {
	ShareInField(ctx context.Context, authorID, fieldID string, minShare float64) bool
}

// Filter evaluates authors against a field subtree. It composes four
// independent gates (top-K presence, absolute floor, relative strength,
// borderline works-share) so that neither glancing associations nor narrow
// specialists are misclassified by any single signal.
type Filter struct {
	cfg     model.FilterConfig
	fieldID string
	shares  ShareChecker
}

// New creates a Filter for the given field
func New(cfg model.FilterConfig, fieldID string, shares ShareChecker) *Filter {
	return &Filter{
		cfg:     cfg,
		fieldID: model.ShortID(fieldID),
		shares:  shares,
	}
}

// Evaluate runs the gates in order, short-circuiting on the first failure.
// The decision is deterministic in the author, the membership set, and the
// memoized count results; network access happens only on the borderline path.
func (f *Filter) Evaluate(ctx context.Context, author model.Author, members model.ConceptSet) model.Decision {
	if len(author.Topics) == 0 {
		return model.Decision{}
	}

	topics := normalize(author.Topics)
	top := topics[0]

	// 1) Field must appear among the top-K topics
	if f.cfg.TopK > 0 {
		k := f.cfg.TopK
		if k > len(topics) {
			k = len(topics)
		}
		inTopK := false
		for _, t := range topics[:k] {
			if members.Contains(t.ID) {
				inTopK = true
				break
			}
		}
		if !inTopK {
			return model.Decision{}
		}
	}

	// 2) Best in-field topic above the absolute floor. Strict > keeps the
	// first maximal value in score-descending order.
	var best model.TopicScore
	found := false
	for _, t := range topics {
		if members.Contains(t.ID) && t.Score >= f.cfg.MinScore && t.Score > best.Score {
			best = t
			found = true
		}
	}
	if !found {
		return model.Decision{}
	}

	// 3) Relative strength against the top topic
	if f.cfg.MinRelative > 0 && best.Score < f.cfg.MinRelative*top.Score {
		return model.Decision{}
	}

	// 4) Borderline: score alone is not trusted, confirm via works share
	if best.Score < f.cfg.BorderlineScore {
		if !(f.cfg.SkipShareIfPrimaryInField && members.Contains(top.ID)) {
			if !f.shares.ShareInField(ctx, author.ID, f.fieldID, f.cfg.MinShare) {
				return model.Decision{}
			}
		}
	}

	return model.Decision{
		Accepted:       true,
		Primary:        top,
		BestInField:    best,
		PrimaryInField: members.Contains(top.ID),
	}
}

// normalize extracts bare concept ids and stable-sorts by score descending,
// preserving the original relative order of equal scores.
func normalize(raw []model.TopicScore) []model.TopicScore {
	topics := make([]model.TopicScore, len(raw))
	for i, t := range raw {
		topics[i] = model.TopicScore{
			ID:          model.ShortID(t.ID),
			DisplayName: t.DisplayName,
			Score:       t.Score,
		}
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Score > topics[j].Score
	})
	return topics
}
