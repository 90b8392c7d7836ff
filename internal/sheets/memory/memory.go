package memory

import (
	"context"
	"sync"

	ports "finanze/internal/sheets"
)

// Store keeps sheet ranges in memory. It backs exports when no Google
// credentials are configured and is used by tests.
type Store struct {
	mu     sync.Mutex
	ranges map[string][][]string
	writes int
}

var _ ports.ReadWriter = (*Store)(nil)

func New() *Store {
	return &Store{ranges: map[string][][]string{}}
}

func key(spreadsheetID, rng string) string {
	return spreadsheetID + "|" + rng
}

// Set seeds the content of a range.
func (s *Store) Set(spreadsheetID, rng string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[key(spreadsheetID, rng)] = clone(rows)
}

func (s *Store) Read(_ context.Context, spreadsheetID, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.ranges[key(spreadsheetID, rng)]), nil
}

func (s *Store) Write(_ context.Context, spreadsheetID, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[key(spreadsheetID, rng)] = clone(rows)
	s.writes++
	return nil
}

// Writes returns how many writes the store has received.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func clone(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
