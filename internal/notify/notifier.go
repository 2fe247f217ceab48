package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is an advisory "history may have changed" signal. Listeners should
// treat it as a hint to re-query, nothing more.
type Event struct {
	Source    string
	Timestamp time.Time
	Fields    map[string]any
}

// Listener receives refresh events.
type Listener func(Event)

// Notifier fans refresh events out to independently registered listeners.
// Each listener runs on its own goroutine; there is no delivery order.
type Notifier struct {
	log zerolog.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener

	inflight sync.WaitGroup
}

// New creates a Notifier.
func New(log zerolog.Logger) *Notifier {
	return &Notifier{
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.listeners[id] = l

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Publish delivers ev to every current listener without waiting for them.
func (n *Notifier) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.RUnlock()

	n.log.Debug().
		Str("source", ev.Source).
		Int("listeners", len(listeners)).
		Msg("Publishing refresh event")

	for _, l := range listeners {
		n.inflight.Add(1)
		go func(l Listener) {
			defer n.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					n.log.Error().Interface("panic", r).Str("source", ev.Source).Msg("Refresh listener panicked")
				}
			}()
			l(ev)
		}(l)
	}
}

// PublishAfter schedules ev to be published after delay so backing storage
// has a chance to settle before listeners re-query it.
func (n *Notifier) PublishAfter(delay time.Duration, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	n.inflight.Add(1)
	time.AfterFunc(delay, func() {
		defer n.inflight.Done()
		n.Publish(ev)
	})
}

// Wait blocks until scheduled events have been published and every listener
// invocation has returned.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}
