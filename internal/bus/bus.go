// Package bus is the in-process channel panels use to learn that the active
// period changed. Dispatch is synchronous and single-publisher: the
// orchestrator publishes once per successful upload cycle, subscribers run
// on the publishing goroutine in registration order.
package bus

import (
	"sync"

	"github.com/anisbt/jauge/internal/logging"
	"github.com/anisbt/jauge/internal/period"
)

// Handler receives the newly active period.
type Handler func(period.Period)

// Subscription is the capability to unsubscribe a handler.
type Subscription struct {
	id uint64
}

// Bus fans a period change out to every registered subscriber.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []entry
}

type entry struct {
	id      uint64
	handler Handler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns the capability to remove it.
// Subscribers added while a publish is in flight are not notified for that
// publish.
func (b *Bus) Subscribe(handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, entry{id: b.nextID, handler: handler})
	return &Subscription{id: b.nextID}
}

// Unsubscribe removes the handler behind sub. Calling it again, or with a
// subscription that was never registered, is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.subs {
		if e.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler subscribed at the moment of the call, in
// registration order, passing p. A panicking handler is logged and skipped;
// the remaining handlers still run.
func (b *Bus) Publish(p period.Period) {
	b.mu.Lock()
	snapshot := make([]entry, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, e := range snapshot {
		dispatch(e.handler, p)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func dispatch(h Handler, p period.Period) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("period subscriber panicked", "panic", r, "period", p.String())
		}
	}()
	h(p)
}
