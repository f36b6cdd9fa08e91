package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const fileExt = ".json"

// FileStore keeps one file per key in a directory shared by every view.
// Writes are atomic (temp file + rename) so readers never see half a value.
type FileStore struct {
	dir    string
	origin string
	logger *zap.Logger

	mu      sync.Mutex
	written map[string][]byte // last value this handle wrote, per key
	closed  bool
	cancel  []context.CancelFunc
}

// NewFileStore opens a handle on dir, creating it if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		dir:     dir,
		origin:  uuid.NewString(),
		logger:  logger.Named("kv.file"),
		written: map[string][]byte{},
	}, nil
}

func (s *FileStore) Origin() string { return s.origin }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write slot %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync slot %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close slot %q: %w", key, err)
	}
	// Record before the rename: the watcher may read the file as soon as it lands.
	s.written[key] = append([]byte(nil), value...)
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("replace slot %q: %w", key, err)
	}
	return nil
}

// Watch reports keys rewritten by other handles. The directory is watched with
// fsnotify; an event whose file content equals what this handle last wrote is
// its own echo and is skipped.
func (s *FileStore) Watch(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = append(s.cancel, cancel)
	s.mu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		cancel()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	out := make(chan Event, eventBuffer)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				key, ok := s.keyOf(ev)
				if !ok || s.isEcho(key) {
					continue
				}
				if !offer(out, Event{Key: key, At: time.Now()}) {
					s.logger.Debug("dropped slot event", zap.String("key", key))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("slot watcher error", zap.Error(err))
			}
		}
	}()
	return out, nil
}

// Close ends every watch started on the handle.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, cancel := range s.cancel {
		cancel()
	}
	s.cancel = nil
	return nil
}

func (s *FileStore) keyOf(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	return strings.TrimSuffix(name, fileExt), true
}

func (s *FileStore) isEcho(key string) bool {
	current, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.written[key]
	return ok && bytes.Equal(last, current)
}
