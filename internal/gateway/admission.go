package gateway

import (
	"context"
	"errors"
	"time"
)

var errOverloaded = errors.New("overloaded")

// admission bounds concurrent chat forwards. Waiters give up after maxWait.
type admission struct {
	slots   chan struct{}
	maxWait time.Duration
}

func newAdmission(n int, maxWait time.Duration) *admission {
	if n <= 0 {
		n = 1
	}
	return &admission{slots: make(chan struct{}, n), maxWait: maxWait}
}

// acquire reserves a slot. Returns a release func to be deferred.
func (a *admission) acquire(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case a.slots <- struct{}{}:
		return a.release, nil
	default:
	}
	if a.maxWait <= 0 {
		return func() {}, errOverloaded
	}
	timer := time.NewTimer(a.maxWait)
	defer timer.Stop()
	select {
	case a.slots <- struct{}{}:
		return a.release, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, errOverloaded
	}
}

func (a *admission) release() { <-a.slots }

// inUse reports the number of held slots.
func (a *admission) inUse() int { return len(a.slots) }
