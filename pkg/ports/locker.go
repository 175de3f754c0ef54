package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker provides the per-conversation mutual-exclusion token
// when several engine replicas share one SessionStore.
type DistributedLocker interface {
	// Lock blocks until the lock for key (a conversation id) is held or ctx
	// is done. The lock expires after ttl if never released.
	// The returned UnlockFunc MUST be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
