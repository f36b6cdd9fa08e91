package kv

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Shared is an in-process backend. Handles opened on the same Shared behave like
// tabs of one browser sharing a local storage area.
type Shared struct {
	mu      sync.RWMutex
	values  map[string][]byte
	handles map[string]*MemoryStore
}

// NewShared returns an empty backend.
func NewShared() *Shared {
	return &Shared{
		values:  map[string][]byte{},
		handles: map[string]*MemoryStore{},
	}
}

// Open returns a new handle with its own origin.
func (s *Shared) Open() *MemoryStore {
	h := &MemoryStore{shared: s, origin: uuid.NewString(), done: make(chan struct{})}
	s.mu.Lock()
	s.handles[h.origin] = h
	s.mu.Unlock()
	return h
}

// MemoryStore is a handle on a Shared backend.
type MemoryStore struct {
	shared *Shared
	origin string

	mu       sync.Mutex
	watchers []chan Event
	closed   bool
	done     chan struct{} // closed by Close
}

// Origin identifies the handle in the events it causes.
func (m *MemoryStore) Origin() string { return m.origin }

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	m.shared.mu.RLock()
	defer m.shared.mu.RUnlock()
	v, ok := m.shared.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set overwrites key and notifies every other open handle before returning.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if m.isClosed() {
		return ErrClosed
	}
	m.shared.mu.Lock()
	m.shared.values[key] = append([]byte(nil), value...)
	others := make([]*MemoryStore, 0, len(m.shared.handles))
	for origin, h := range m.shared.handles {
		if origin != m.origin {
			others = append(others, h)
		}
	}
	m.shared.mu.Unlock()

	ev := Event{Key: key, Origin: m.origin, At: time.Now()}
	for _, h := range others {
		h.notify(ev)
	}
	return nil
}

// Watch subscribes to writes made through other handles.
func (m *MemoryStore) Watch(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	ch := make(chan Event, eventBuffer)
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			m.unsubscribe(ch)
		case <-m.done:
		}
	}()
	return ch, nil
}

// Close detaches the handle from the backend and ends its watches.
func (m *MemoryStore) Close() error {
	m.shared.mu.Lock()
	delete(m.shared.handles, m.origin)
	m.shared.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	for _, ch := range m.watchers {
		close(ch)
	}
	m.watchers = nil
	return nil
}

func (m *MemoryStore) notify(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.watchers {
		offer(ch, ev)
	}
}

func (m *MemoryStore) unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *MemoryStore) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
