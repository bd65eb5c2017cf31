package openalex

import "github.com/rmoretti/fieldharvest/internal/model"

// ListMeta is the pagination metadata block of a list response
type ListMeta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

// AuthorsPage is one page of /authors results
type AuthorsPage struct {
	Meta    ListMeta       `json:"meta"`
	Results []model.Author `json:"results"`
}

// conceptsPage is one page of /concepts results, id-only
type conceptsPage struct {
	Meta    ListMeta `json:"meta"`
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// countPage carries only the total-count metadata of a /works query
type countPage struct {
	Meta ListMeta `json:"meta"`
}
