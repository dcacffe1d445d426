package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/dpage/maildroid/internal/model"
	"github.com/dpage/maildroid/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MakeExecutions builds n execution records named rec-000, rec-001, ...
// with timestamps stepping back one minute per record, newest first.
func MakeExecutions(n int) []model.ExecutionRecord {
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	recs := make([]model.ExecutionRecord, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, model.ExecutionRecord{
			ID:           fmt.Sprintf("rec-%03d", i),
			PromptID:     "prompt-1",
			PromptName:   "urgent scan",
			Timestamp:    base.Add(-time.Duration(i) * time.Minute),
			Result:       fmt.Sprintf("result %d", i),
			Actionable:   i%2 == 0,
			MessageCount: i,
		})
	}
	return recs
}
