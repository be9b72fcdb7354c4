package viewer

import (
	"slices"
	"sync"

	"github.com/toucan4life/gamemap/pkg/graph"
)

// Feed broadcasts selection changes made outside a viewer, for example
// from a search box or a details panel. The zero value is ready to use.
type Feed struct {
	mu   sync.Mutex
	next int
	subs map[int]func(graph.NodeID)
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (f *Feed) Subscribe(fn func(graph.NodeID)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func(graph.NodeID))
	}
	f.next++
	key := f.next
	f.subs[key] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, key)
	}
}

// Publish delivers id to every subscriber in subscription order.
func (f *Feed) Publish(id graph.NodeID) {
	f.mu.Lock()
	keys := make([]int, 0, len(f.subs))
	for k := range f.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(graph.NodeID), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, f.subs[k])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Len returns the number of subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
