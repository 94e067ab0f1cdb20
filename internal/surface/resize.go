package surface

import "sync"

// ResizeNotifier fans container size changes out to subscribers. Physics and
// particles subscribe to the same notifier so they never disagree on size.
type ResizeNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Size)
}

// Subscribe registers fn and returns a function that unregisters it.
func (n *ResizeNotifier) Subscribe(fn func(Size)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(Size))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify calls every subscriber with size. Subscribers run on the caller's
// goroutine, outside the notifier lock.
func (n *ResizeNotifier) Notify(size Size) {
	n.mu.Lock()
	fns := make([]func(Size), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(size)
	}
}
