package core

import "sync"

// Bus fans typed lifecycle events out to subscribers. Events reach each
// subscriber in emission order, at most once per emission. A subscriber
// whose buffer is full loses the event rather than blocking the emitter.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

type subscriber struct {
	kinds map[EventKind]struct{}
	ch    chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a listener for the given kinds. The cancel func is
// idempotent; once it returns the channel is closed and no further events
// are delivered.
func (b *Bus) Subscribe(kinds ...EventKind) (<-chan Event, func()) {
	sub := &subscriber{
		kinds: make(map[EventKind]struct{}, len(kinds)),
		ch:    make(chan Event, 16),
	}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers ev to every subscriber registered for its kind.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if _, ok := sub.kinds[ev.Kind]; !ok {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
