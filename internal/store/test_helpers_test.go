package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
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

var testBase = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// createTestRecord creates a validated-looking record with minimal fields.
// offset is added to a fixed base time to form UpdatedAt.
func createTestRecord(reportID, by string, offset time.Duration) ir.Record {
	return ir.Record{
		ReportID:       reportID,
		Title:          "title " + reportID,
		Content:        "content " + reportID,
		Classification: ir.DefaultClassification,
		UpdatedAt:      testBase.Add(offset),
		UpdatedBy:      by,
		ReceivedAt:     testBase,
		Digest:         "digest-" + reportID,
	}
}

func mustAppend(t *testing.T, s *Store, rec ir.Record) int64 {
	t.Helper()
	seq, err := s.Append(t.Context(), rec)
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	return seq
}
