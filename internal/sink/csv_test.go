package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmoretti/fieldharvest/internal/model"
)

func sampleRecord() model.Record {
	return model.Record{
		AuthorID:      "https://openalex.org/A5001",
		Name:          "Ada Lovelace",
		ORCID:         "https://orcid.org/0000-0001-0000-0001",
		InstitutionID: "https://openalex.org/I1",
		Affiliation:   "University of London",
		Country:       "GB",
		WorksCount:    42,
		CitedByCount:  1234,

		Fields:     "Mathematics; Economics",
		FieldGroup: "Economics",

		PrimaryConceptID:    "C33923547",
		PrimaryConceptName:  "Mathematics",
		PrimaryConceptScore: 91.5,

		BestInFieldScore: 85,
		BestInFieldID:    "C162324750",
		BestInFieldName:  "Economics",

		IsPrimaryInField: false,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSV_WritesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "economics.csv")

	s, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(sampleRecord()))
	require.NoError(t, s.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, columns, rows[0])

	row := rows[1]
	assert.Equal(t, "https://openalex.org/A5001", row[0])
	assert.Equal(t, "Ada Lovelace", row[1])
	assert.Equal(t, "GB", row[5])
	assert.Equal(t, "42", row[6])
	assert.Equal(t, "1234", row[7])
	assert.Equal(t, "Mathematics; Economics", row[8])
	assert.Equal(t, "91.5", row[12])
	assert.Equal(t, "85", row[13])
	assert.Equal(t, "false", row[16])
}

func TestCSV_AppendsWithoutDuplicatingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economics.csv")

	s, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(sampleRecord()))
	require.NoError(t, s.Close())

	// Reopen as a resumed run would
	s, err = NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(sampleRecord()))
	require.NoError(t, s.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 3, "header once, two data rows")
	assert.Equal(t, columns, rows[0])
	assert.NotEqual(t, columns, rows[1])
}

func TestCSV_FlushMakesRowsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economics.csv")

	s, err := NewCSV(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(sampleRecord()))
	require.NoError(t, s.Flush())

	rows := readAll(t, path)
	assert.Len(t, rows, 2)
}
