package model

import "strings"

// TopicScore is one normalized taxonomy association of an author
type TopicScore struct {
	ID          string  `json:"id"`           // bare concept id (e.g. C162324750)
	DisplayName string  `json:"display_name"` // human-readable topic name
	Score       float64 `json:"score"`        // association strength, 0-100
}

// Institution is an author's last known affiliation
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Author is one candidate record from a paged authors response
type Author struct {
	ID           string        `json:"id"` // full OpenAlex URL id
	DisplayName  string        `json:"display_name"`
	ORCID        string        `json:"orcid"`
	Institutions []Institution `json:"last_known_institutions"`
	WorksCount   int           `json:"works_count"`
	CitedByCount int           `json:"cited_by_count"`
	Topics       []TopicScore  `json:"x_concepts"`
}

// Decision is the outcome of evaluating one author against a field
type Decision struct {
	Accepted       bool
	Primary        TopicScore // highest-scored topic overall
	BestInField    TopicScore // winning in-field topic
	PrimaryInField bool       // whether Primary belongs to the field subtree
}

// ConceptSet is the membership set of a taxonomy subtree (root plus all
// descendants), keyed by bare concept id. Built once per run, read-only after.
type ConceptSet map[string]struct{}

// Add inserts a concept id
func (s ConceptSet) Add(id string) {
	s[id] = struct{}{}
}

// Contains reports whether id belongs to the subtree
func (s ConceptSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// ShortID extracts the bare id from a URL-shaped OpenAlex reference
// (https://openalex.org/C123 -> C123). Already-bare ids pass through.
func ShortID(ref string) string {
	if ref == "" {
		return ""
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Record is one accepted author mapped to the output schema
type Record struct {
	AuthorID      string
	Name          string
	ORCID         string
	InstitutionID string
	Affiliation   string
	Country       string
	WorksCount    int
	CitedByCount  int

	Fields     string // all topic names joined with "; "
	FieldGroup string // target field display name

	PrimaryConceptID    string
	PrimaryConceptName  string
	PrimaryConceptScore float64

	BestInFieldScore float64
	BestInFieldID    string
	BestInFieldName  string

	IsPrimaryInField bool
}

// NewRecord maps an accepted author and its filter decision to the output schema
func NewRecord(a Author, d Decision, fieldName string) Record {
	names := make([]string, 0, len(a.Topics))
	for _, t := range a.Topics {
		names = append(names, t.DisplayName)
	}

	rec := Record{
		AuthorID:      a.ID,
		Name:          a.DisplayName,
		ORCID:         a.ORCID,
		InstitutionID: "N/A",
		Affiliation:   "N/A",
		Country:       "N/A",
		WorksCount:    a.WorksCount,
		CitedByCount:  a.CitedByCount,

		Fields:     strings.Join(names, "; "),
		FieldGroup: fieldName,

		PrimaryConceptID:    d.Primary.ID,
		PrimaryConceptName:  d.Primary.DisplayName,
		PrimaryConceptScore: d.Primary.Score,

		BestInFieldScore: d.BestInField.Score,
		BestInFieldID:    d.BestInField.ID,
		BestInFieldName:  d.BestInField.DisplayName,

		IsPrimaryInField: d.PrimaryInField,
	}

	if len(a.Institutions) > 0 {
		inst := a.Institutions[0]
		if inst.ID != "" {
			rec.InstitutionID = inst.ID
		}
		if inst.DisplayName != "" {
			rec.Affiliation = inst.DisplayName
		}
		if inst.CountryCode != "" {
			rec.Country = inst.CountryCode
		}
	}

	return rec
}
