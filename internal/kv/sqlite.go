package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// DefaultPollInterval is how often a SQLite watch checks for foreign commits.
const DefaultPollInterval = 250 * time.Millisecond

// SQLiteStore keeps slots as rows of a SQLite file shared by every view.
//
// The handle owns exactly one connection. SQLite bumps PRAGMA data_version on a
// connection only when another connection commits, which gives the same
// "never see your own writes" guarantee browsers give for storage events.
type SQLiteStore struct {
	db     *sql.DB
	origin string
	poll   time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	cancel []context.CancelFunc
}

type slotVersion struct {
	version int64
	origin  string
}

// NewSQLiteStore opens a handle on the database at path, applying migrations.
// A non-positive poll uses DefaultPollInterval.
func NewSQLiteStore(path string, poll time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{
		db:     db,
		origin: uuid.NewString(),
		poll:   poll,
		logger: logger.Named("kv.sqlite"),
	}, nil
}

func (s *SQLiteStore) Origin() string { return s.origin }

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, origin, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			origin = excluded.origin,
			version = slots.version + 1,
			updated_at = excluded.updated_at
	`, key, value, s.origin, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}
	return nil
}

// Watch polls data_version and reports keys whose row version moved and whose
// last writer is another handle.
func (s *SQLiteStore) Watch(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = append(s.cancel, cancel)
	s.mu.Unlock()

	dv, err := s.dataVersion(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	seen, err := s.versions(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan Event, eventBuffer)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := s.dataVersion(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("read data_version", zap.Error(err))
				continue
			}
			if current == dv {
				continue
			}
			dv = current

			latest, err := s.versions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("read slot versions", zap.Error(err))
				continue
			}
			for key, row := range latest {
				if prev, ok := seen[key]; ok && prev.version == row.version {
					continue
				}
				if row.origin == s.origin {
					continue
				}
				if !offer(out, Event{Key: key, Origin: row.origin, At: time.Now()}) {
					s.logger.Debug("dropped slot event", zap.String("key", key))
				}
			}
			seen = latest
		}
	}()
	return out, nil
}

// Close ends the handle's watches and releases its connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, cancel := range s.cancel {
		cancel()
	}
	s.cancel = nil
	s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStore) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("query data_version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) versions(ctx context.Context) (map[string]slotVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, version, origin FROM slots`)
	if err != nil {
		return nil, fmt.Errorf("query slot versions: %w", err)
	}
	defer rows.Close()

	out := map[string]slotVersion{}
	for rows.Next() {
		var key string
		var v slotVersion
		if err := rows.Scan(&key, &v.version, &v.origin); err != nil {
			return nil, fmt.Errorf("scan slot version: %w", err)
		}
		out[key] = v
	}
	return out, rows.Err()
}
