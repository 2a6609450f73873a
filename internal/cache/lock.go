package cache

import (
	"context"
	"time"

	"github.com/Domenick1991/aircargo/internal/domain"
)

// AcquireWithRetry attempts a bounded number of lock acquisitions with a
// fixed backoff between attempts. Exhausting the attempts is fatal for the
// request and surfaces as ErrLockTimeout; callers never block indefinitely.
func AcquireWithRetry(ctx context.Context, locker Locker, key string, ttl time.Duration, attempts int, backoff time.Duration) error {
	for i := 0; i < attempts; i++ {
		ok, err := locker.Acquire(ctx, key, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return domain.ErrLockTimeout
}
