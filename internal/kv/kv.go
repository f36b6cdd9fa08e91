// Package kv provides the persistent slots a ledger is stored in.
//
// A slot backend is shared by every view running on the machine. Each view opens
// its own handle; a handle reports changes made through other handles only, the
// same way a browser tab never receives storage events for its own writes.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned when a handle is used after Close.
var ErrClosed = errors.New("slot handle closed")

// eventBuffer bounds the per-watcher backlog. Events beyond it are dropped;
// the periodic refresh picks up whatever a dropped event announced.
const eventBuffer = 16

// Store reads and writes whole values under a key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Watcher streams the changes other handles make to the backend.
// The channel is closed when ctx is done or the handle is closed.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// Slot is one view's handle on a shared backend.
type Slot interface {
	Store
	Watcher
	Origin() string
	Close() error
}

// Event announces that Key was rewritten by the handle identified by Origin.
type Event struct {
	Key    string
	Origin string
	At     time.Time
}

// offer delivers ev unless the receiver is behind.
func offer(ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}
