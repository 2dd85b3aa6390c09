package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/statmap/internal/indicator"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestIndicator stores an indicator with the given name and type.
func createTestIndicator(t *testing.T, s *Store, name string, vt indicator.ValueType, formula string) indicator.Indicator {
	t.Helper()
	ind, err := s.CreateIndicator(context.Background(), indicator.Indicator{
		Name:      name,
		ValueType: vt,
		Formula:   formula,
	})
	if err != nil {
		t.Fatalf("CreateIndicator(%q) failed: %v", name, err)
	}
	return ind
}

// writeTestValue records a value without a note.
func writeTestValue(t *testing.T, s *Store, ind indicator.Indicator, regionID int64, year int, raw any) {
	t.Helper()
	if err := s.WriteValue(context.Background(), ind, regionID, year, raw, nil); err != nil {
		t.Fatalf("WriteValue(%q, %d, %d) failed: %v", ind.Name, regionID, year, err)
	}
}
