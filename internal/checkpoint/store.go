// Package checkpoint persists the pagination cursor so an interrupted run
// can resume where it left off.
package checkpoint

import (
	"fmt"
	"os"
	"strings"
)

// Start is the cursor denoting the beginning of a paginated sequence
const Start = "*"

// Store keeps a single opaque cursor token in a text file. Only the most
// recent cursor is retained.
type Store struct {
	path string
}

// New creates a Store backed by the given file path
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the last saved cursor, or Start when no checkpoint exists or
// the stored value is blank.
func (s *Store) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Start
	}
	cursor := strings.TrimSpace(string(data))
	if cursor == "" {
		return Start
	}
	return cursor
}

// Save persists the cursor. An empty cursor is a no-op: exhaustion is never
// recorded, so a fresh run after natural completion restarts from Start
// instead of reusing a stale terminal cursor.
func (s *Store) Save(cursor string) error {
	if cursor == "" {
		return nil
	}
	if err := os.WriteFile(s.path, []byte(cursor), 0o644); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
