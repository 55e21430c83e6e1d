package docstore

import (
	"context"
	"sync"
)

type subscription struct {
	segs     []string
	listener Listener
}

// MemoryStore is an in-process document tree with synchronous change
// notification. Listeners run on the writer's goroutine, outside the lock.
type MemoryStore struct {
	mu     sync.RWMutex
	root   map[string]any
	subs   map[int]*subscription
	nextID int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: make(map[string]any),
		subs: make(map[int]*subscription),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAt(s.root, splitPath(path)), nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, path string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	segs := splitPath(path)

	s.mu.Lock()
	s.root = setAt(s.root, segs, normalized)
	pending := s.collect(segs)
	s.mu.Unlock()

	notify(pending)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, path string, values map[string]any) error {
	base := splitPath(path)
	normalized := make(map[string]any, len(values))
	for k, v := range values {
		n, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = n
	}

	s.mu.Lock()
	for k, v := range normalized {
		segs := append(append([]string{}, base...), splitPath(k)...)
		s.root = setAt(s.root, segs, v)
	}
	pending := s.collect(base)
	s.mu.Unlock()

	notify(pending)
	return nil
}

// OnValue implements Store.
func (s *MemoryStore) OnValue(ctx context.Context, path string, listener Listener) (func(), error) {
	segs := splitPath(path)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscription{segs: segs, listener: listener}
	initial := getAt(s.root, segs)
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			unsubscribe()
		}()
	}

	listener(initial)
	return unsubscribe, nil
}

type delivery struct {
	listener Listener
	value    any
}

// collect must be called with the write lock held.
func (s *MemoryStore) collect(changed []string) []delivery {
	var out []delivery
	for _, sub := range s.subs {
		if overlaps(sub.segs, changed) {
			out = append(out, delivery{listener: sub.listener, value: getAt(s.root, sub.segs)})
		}
	}
	return out
}

func notify(pending []delivery) {
	for _, d := range pending {
		d.listener(d.value)
	}
}
