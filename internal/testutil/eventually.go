package testutil

import (
	"testing"
	"time"
)

// Eventually polls fn at the given interval until it returns true, failing
// the test with msg once timeout elapses. Used to observe the manager's
// asynchronous event and tier notifications.
func Eventually(t *testing.T, timeout, interval time.Duration, fn func() bool, msg string) {
	t.Helper()
	if msg == "" {
		msg = "condition not met before timeout"
	}
	deadline := time.After(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if fn() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("%s (after %v)", msg, timeout)
		case <-ticker.C:
		}
	}
}
