package session

import "sync"

// ActivityNotifier coalesces every kind of user interaction (pointer
// moves, key presses, clicks, scrolls, touches) into one subscription
// point, so callers attach and detach a single pair instead of one
// listener per event kind.
type ActivityNotifier struct {
	mu     sync.Mutex
	sinks  map[int]func()
	nextID int
}

func NewActivityNotifier() *ActivityNotifier {
	return &ActivityNotifier{sinks: make(map[int]func())}
}

// Subscribe registers a callback for every reported activity event and
// returns its remover. The remover fully unregisters and is safe to call
// more than once.
func (n *ActivityNotifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.sinks[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.sinks, id)
			n.mu.Unlock()
		})
	}
}

// Notify reports one activity event, whatever its source.
func (n *ActivityNotifier) Notify() {
	n.mu.Lock()
	sinks := make([]func(), 0, len(n.sinks))
	for _, fn := range n.sinks {
		sinks = append(sinks, fn)
	}
	n.mu.Unlock()
	for _, fn := range sinks {
		fn()
	}
}

// Attach wires the notifier to a guard's activity clock and returns the
// detach function.
func (n *ActivityNotifier) Attach(g *Guard) (detach func()) {
	return n.Subscribe(g.RecordActivity)
}
