package testutil

import (
	"testing"

	"bkpt-go/internal/logdb"
)

// NewTestLog creates an in-memory checkpoint log for testing and closes
// it with the test.
func NewTestLog(t *testing.T) *logdb.SQLiteLog {
	t.Helper()

	log, err := logdb.New(":memory:")
	if err != nil {
		t.Fatalf("creating test checkpoint log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}
