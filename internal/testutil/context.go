package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTimeout bounds blocking manager calls in unit tests.
const DefaultTimeout = 5 * time.Second

// Context returns a context that expires after timeout (DefaultTimeout when
// zero) and is cancelled when the test finishes. The timeout is clamped to
// the test binary's own deadline when one is set.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := t.Deadline(); ok {
		remaining := time.Until(deadline) - time.Second
		if remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
