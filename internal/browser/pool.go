package browser

import (
	"sort"
	"sync"
)

// Factory creates the session owned by worker.
type Factory[T any] func(worker int) (T, error)

type entry[T any] struct {
	once    sync.Once
	session T
	err     error
	live    bool // guarded by Pool.mu
}

// Pool hands every worker identity its own session. The session is created on
// the first Acquire for that identity and returned on every later call; a
// failed creation is remembered, so the worker keeps getting the same error.
// Sessions are never handed to a different identity.
type Pool[T any] struct {
	factory Factory[T]

	mu      sync.Mutex
	entries map[int]*entry[T]
}

func NewPool[T any](factory Factory[T]) *Pool[T] {
	return &Pool[T]{factory: factory, entries: make(map[int]*entry[T])}
}

// Acquire returns the session bound to worker, creating it if needed.
func (p *Pool[T]) Acquire(worker int) (T, error) {
	p.mu.Lock()
	e, ok := p.entries[worker]
	if !ok {
		e = &entry[T]{}
		p.entries[worker] = e
	}
	p.mu.Unlock()

	// Creation runs outside the map lock so workers launch browsers in parallel.
	e.once.Do(func() {
		e.session, e.err = p.factory(worker)
		p.mu.Lock()
		e.live = e.err == nil
		p.mu.Unlock()
	})
	return e.session, e.err
}

// Len is the number of worker identities that have a live session.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		if e.live {
			n++
		}
	}
	return n
}

// Cleanup calls fn for every live session in worker order and forgets them.
// It must only be called once no worker uses the pool anymore.
func (p *Pool[T]) Cleanup(fn func(worker int, session T)) {
	p.mu.Lock()
	live := make(map[int]T, len(p.entries))
	workers := make([]int, 0, len(p.entries))
	for w, e := range p.entries {
		if e.live {
			live[w] = e.session
			workers = append(workers, w)
		}
	}
	p.entries = make(map[int]*entry[T])
	p.mu.Unlock()

	sort.Ints(workers)
	for _, w := range workers {
		fn(w, live[w])
	}
}
