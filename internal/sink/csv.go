// Package sink writes accepted author records to durable tabular storage.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rmoretti/fieldharvest/internal/model"
)

// columns is the fixed, ordered output schema
var columns = []string{
	"author_id", "name", "orcid",
	"institution_id", "affiliation", "country",
	"works_count", "cited_by_count",
	"fields", "field_group",
	"primary_concept_id", "primary_concept_name", "primary_concept_score",
	"best_in_field_score", "best_in_field_id", "best_in_field_name",
	"is_primary_in_field",
}

// CSV appends author records to a CSV file. The header is written once, when
// the file is new or empty; subsequent runs append.
type CSV struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSV opens (or creates) the CSV at path in append mode
func NewCSV(path string) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	s := &CSV{file: file, writer: csv.NewWriter(file)}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat output: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writer.Write(columns); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return s, nil
}

// Write appends one record
func (s *CSV) Write(r model.Record) error {
	row := []string{
		r.AuthorID, r.Name, r.ORCID,
		r.InstitutionID, r.Affiliation, r.Country,
		strconv.Itoa(r.WorksCount), strconv.Itoa(r.CitedByCount),
		r.Fields, r.FieldGroup,
		r.PrimaryConceptID, r.PrimaryConceptName, formatScore(r.PrimaryConceptScore),
		formatScore(r.BestInFieldScore), r.BestInFieldID, r.BestInFieldName,
		strconv.FormatBool(r.IsPrimaryInField),
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Flush forces buffered rows to disk, bounding data loss on abrupt termination
func (s *CSV) Flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// Close flushes and closes the file
func (s *CSV) Close() error {
	flushErr := s.Flush()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return flushErr
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
