package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/kv"
)

// DefaultKey is the slot key the ledger lives under.
const DefaultKey = "sales"

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// Ledger is a view's in-memory copy of the sales list, backed by one slot key.
// Every persist rewrites the whole list.
type Ledger struct {
	slot   kv.Store
	key    string
	logger *zap.Logger

	mu    sync.RWMutex
	sales []Sale
}

// NewLedger returns an empty ledger over key in slot. Call Load to read it.
func NewLedger(slot kv.Store, key string, logger *zap.Logger) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		slot:   slot,
		key:    key,
		logger: logger.Named("ledger"),
	}
}

// Key returns the slot key the ledger persists to.
func (l *Ledger) Key() string { return l.key }

// Load replaces the in-memory list with the slot's content and returns a copy.
// An absent or unparseable slot yields an empty ledger. Any other read error
// keeps the current list so a transient failure never wipes the view.
//
// The read and the replace happen under the write lock, so an Append cannot
// land between them and be overwritten by a stale read.
func (l *Ledger) Load(ctx context.Context) []Sale {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.slot.Get(ctx, l.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		l.sales = []Sale{}
	case err != nil:
		l.logger.Error("read ledger slot", zap.String("key", l.key), zap.Error(err))
	default:
		var sales []Sale
		if err := json.Unmarshal(data, &sales); err != nil {
			l.logger.Warn("ledger slot is not valid JSON, starting empty", zap.String("key", l.key), zap.Error(err))
			sales = nil
		}
		if sales == nil {
			sales = []Sale{}
		}
		l.sales = sales
	}
	out := make([]Sale, len(l.sales))
	copy(out, l.sales)
	return out
}

// Append adds sale at the tail and persists. Validation is the caller's job.
// If the write fails the sale is removed again so memory matches the slot.
func (l *Ledger) Append(ctx context.Context, sale Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sales = append(l.sales, sale)
	if err := l.persistLocked(ctx); err != nil {
		l.sales = l.sales[:len(l.sales)-1]
		return err
	}
	return nil
}

// Persist writes the full in-memory list to the slot.
func (l *Ledger) Persist(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.persistLocked(ctx)
}

// Snapshot returns a copy of the in-memory list in ledger order.
func (l *Ledger) Snapshot() []Sale {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Sale, len(l.sales))
	copy(out, l.sales)
	return out
}

// Last returns the most recent sale, if any.
func (l *Ledger) Last() (Sale, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.sales) == 0 {
		return Sale{}, false
	}
	return l.sales[len(l.sales)-1], true
}

// Len returns the number of sales held in memory.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sales)
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	sales := l.sales
	if sales == nil {
		sales = []Sale{}
	}
	data, err := json.Marshal(sales)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.slot.Set(ctx, l.key, data); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
