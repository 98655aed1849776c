package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Single-producer / many-consumer fan-out.
 *
 * Description:	Each subscriber owns a single-slot overwrite mailbox: the
 *		broadcaster never blocks on a slow or absent consumer, and a
 *		mailbox that already holds an unconsumed result is simply
 *		replaced, not queued.
 *
 *		A prior deque-per-subscriber design (replay history) was
 *		deliberately replaced by the single-slot overwrite redesign
 *		below, since a TCP client only ever cares about the latest
 *		rotation state.
 *
 *------------------------------------------------------------------*/

import "sync"

// Mailbox is a single-slot overwrite queue holding the most recent
// RotationResult not yet consumed by its owning handler.
type Mailbox struct {
	mu      sync.Mutex
	pending bool
	value   RotationResult
}

// push overwrites the mailbox's slot, discarding any unconsumed value.
func (m *Mailbox) push(r RotationResult) {
	m.mu.Lock()
	m.value = r
	m.pending = true
	m.mu.Unlock()
}

// Pop removes and returns the pending value, if any. Non-blocking.
func (m *Mailbox) Pop() (RotationResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return RotationResult{}, false
	}
	m.pending = false
	return m.value, true
}

// Peek returns the pending value without consuming it, for tests that
// need to observe the "peek() returns r" law without racing a
// handler's own Pop.
func (m *Mailbox) Peek() (RotationResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.pending
}

// Broadcaster fans RotationResult values out to every subscribed Mailbox.
// The subscriber set tolerates concurrent subscribe/unsubscribe while a
// broadcast is in flight.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[*Mailbox]struct{}
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[*Mailbox]struct{})}
}

// Subscribe creates a new mailbox, registers it, and returns it.
func (b *Broadcaster) Subscribe() *Mailbox {
	m := &Mailbox{}
	b.mu.Lock()
	b.subscribers[m] = struct{}{}
	b.mu.Unlock()
	return m
}

// Unsubscribe removes m from the subscriber set. Idempotent: removing an
// already-removed or unknown mailbox is not an error.
func (b *Broadcaster) Unsubscribe(m *Mailbox) {
	b.mu.Lock()
	delete(b.subscribers, m)
	b.mu.Unlock()
}

// Broadcast publishes a copy of r into every currently-subscribed
// mailbox. Never blocks: each mailbox push is an O(1) overwrite under its
// own lock.
func (b *Broadcaster) Broadcast(r RotationResult) {
	b.mu.Lock()
	targets := make([]*Mailbox, 0, len(b.subscribers))
	for m := range b.subscribers {
		targets = append(targets, m)
	}
	b.mu.Unlock()

	for _, m := range targets {
		m.push(r)
	}
}

// SubscriberCount reports the current subscriber set size, for tests and
// diagnostics.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
