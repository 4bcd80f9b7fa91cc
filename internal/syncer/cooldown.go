package syncer

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// Cooldown tuning. The first retry lands on the next pass; repeated
// failures stretch the gap up to the cap. Items are never abandoned.
const (
	cooldownInitial = 30 * time.Second
	cooldownMax     = 30 * time.Minute
)

// cooldownTracker bounds retries of persistently failing transfers.
// Each failing item (remote key or local path) is skipped until its
// next-eligible time; the interval grows exponentially per consecutive
// failure. A success clears the item's record.
type cooldownTracker struct {
	clock clockwork.Clock
	items map[string]*cooldownItem
}

type cooldownItem struct {
	bo       *backoff.ExponentialBackOff
	eligible time.Time
	failures int
}

func newCooldownTracker(clock clockwork.Clock) *cooldownTracker {
	return &cooldownTracker{
		clock: clock,
		items: make(map[string]*cooldownItem),
	}
}

// Ready reports whether the item may be attempted now.
func (t *cooldownTracker) Ready(key string) bool {
	it, ok := t.items[key]
	if !ok {
		return true
	}
	return !t.clock.Now().Before(it.eligible)
}

// Failure records a failed attempt and returns the cooldown applied.
func (t *cooldownTracker) Failure(key string) time.Duration {
	it, ok := t.items[key]
	if !ok {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = cooldownInitial
		bo.MaxInterval = cooldownMax
		bo.MaxElapsedTime = 0 // cap the interval, never give up
		bo.Clock = t.clock
		bo.Reset()
		it = &cooldownItem{bo: bo}
		t.items[key] = it
	}

	d := it.bo.NextBackOff()
	it.failures++
	it.eligible = t.clock.Now().Add(d)
	return d
}

// Success clears the item's failure record.
func (t *cooldownTracker) Success(key string) {
	delete(t.items, key)
}

// Failures returns the consecutive failure count for an item.
func (t *cooldownTracker) Failures(key string) int {
	if it, ok := t.items[key]; ok {
		return it.failures
	}
	return 0
}
