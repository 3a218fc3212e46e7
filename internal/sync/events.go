package sync

import "sync"

// Event is the advisory "highlights changed" notification. It names
// the owner and, when the change is scoped to one page, that page's
// opaque id. Subscribers must re-query the coordinator rather than
// treat the payload as complete state.
type Event struct {
	OwnerID string
	PageID  string // empty when the change spans multiple pages
}

// Notifier fans an Event out to subscribers. Callbacks run
// synchronously on the notifying goroutine; subscribers that need to
// do real work should hand the event off.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify delivers e to every subscriber.
func (n *Notifier) Notify(e Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
