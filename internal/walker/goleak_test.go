package walker

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the errgroup-backed worker pool leaves no goroutines
// running once Wait returns, matching the teacher's
// internal/core/goleak_test.go convention.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
