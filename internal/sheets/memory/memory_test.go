package memory

import (
	"context"
	"testing"
)

func TestStoreReadWrite(t *testing.T) {
	s := New()
	s.Set("id", "Sheet", [][]string{{"name"}})

	rows, err := s.Read(context.Background(), "id", "Sheet")
	if err != nil || len(rows) != 1 || rows[0][0] != "name" {
		t.Fatalf("unexpected read: rows=%v err=%v", rows, err)
	}

	// Returned rows are copies.
	rows[0][0] = "changed"
	again, _ := s.Read(context.Background(), "id", "Sheet")
	if again[0][0] != "name" {
		t.Fatalf("store mutated through returned rows: %v", again)
	}

	if err := s.Write(context.Background(), "id", "Sheet", [][]string{{"name"}, {"Fund"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, _ = s.Read(context.Background(), "id", "Sheet")
	if len(rows) != 2 || s.Writes() != 1 {
		t.Fatalf("unexpected state: rows=%v writes=%d", rows, s.Writes())
	}

	missing, _ := s.Read(context.Background(), "other", "Sheet")
	if missing != nil {
		t.Fatalf("expected nil for unknown range, got %v", missing)
	}
}
