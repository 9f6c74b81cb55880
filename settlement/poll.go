package settlement

import (
	"context"
	"time"
)

// pollUntil invokes check immediately and then at every interval tick until
// check reports done, check returns an error, the timeout elapses, or ctx is
// canceled. A false return with a nil error means the deadline passed without
// reaching a terminal state.
func pollUntil(
	ctx context.Context,
	interval, timeout time.Duration,
	check func(ctx context.Context) (bool, error),
) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}
