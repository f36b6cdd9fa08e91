package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sorinen/service-boutique/internal/kv"
)

// failingStore fails every write and, optionally, every read.
type failingStore struct {
	kv.Store
	readErr error
}

var errDisk = errors.New("disk full")

func (f failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Store.Get(ctx, key)
}

func (f failingStore) Set(context.Context, string, []byte) error { return errDisk }

func TestLedger_LoadAbsentSlot(t *testing.T) {
	l := NewLedger(kv.NewShared().Open(), "", zaptest.NewLogger(t))
	assert.Equal(t, DefaultKey, l.Key())
	assert.Empty(t, l.Load(context.Background()))
	assert.Zero(t, l.Len())
}

func TestLedger_LoadGarbage(t *testing.T) {
	ctx := context.Background()
	slot := kv.NewShared().Open()
	require.NoError(t, slot.Set(ctx, DefaultKey, []byte("{not json")))

	l := NewLedger(slot, DefaultKey, zaptest.NewLogger(t))
	l.sales = fixture()
	assert.Empty(t, l.Load(ctx))
	assert.Zero(t, l.Len())
}

func TestLedger_LoadReadErrorKeepsMemory(t *testing.T) {
	shared := kv.NewShared()
	l := NewLedger(failingStore{Store: shared.Open(), readErr: errDisk}, DefaultKey, zaptest.NewLogger(t))
	l.sales = fixture()

	assert.Len(t, l.Load(context.Background()), len(fixture()))
}

func TestLedger_PersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	shared := kv.NewShared()

	writer := NewLedger(shared.Open(), DefaultKey, zaptest.NewLogger(t))
	for _, s := range fixture() {
		require.NoError(t, writer.Append(ctx, s))
	}

	reader := NewLedger(shared.Open(), DefaultKey, zaptest.NewLogger(t))
	assert.Equal(t, fixture(), reader.Load(ctx))

	require.NoError(t, writer.Persist(ctx))
	assert.Equal(t, writer.Snapshot(), reader.Load(ctx))
}

func TestLedger_AppendRollsBackOnWriteFailure(t *testing.T) {
	l := NewLedger(failingStore{Store: kv.NewShared().Open()}, DefaultKey, zaptest.NewLogger(t))

	err := l.Append(context.Background(), fixture()[0])
	assert.ErrorIs(t, err, errDisk)
	assert.Zero(t, l.Len())
	_, ok := l.Last()
	assert.False(t, ok)
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(kv.NewShared().Open(), DefaultKey, zaptest.NewLogger(t))
	require.NoError(t, l.Append(ctx, fixture()[0]))

	snap := l.Snapshot()
	snap[0].Title = "changed"

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "Rouge à lèvres", last.Title)
}

func TestLedger_EmptyPersistsAsArray(t *testing.T) {
	ctx := context.Background()
	slot := kv.NewShared().Open()
	l := NewLedger(slot, DefaultKey, zaptest.NewLogger(t))
	require.NoError(t, l.Persist(ctx))

	data, err := slot.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

// pausingStore holds its first Get after the read until release is closed.
type pausingStore struct {
	kv.Store
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.Store.Get(ctx, key)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return data, err
}

func TestLedger_LoadDoesNotDropConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	shared := kv.NewShared()
	store := &pausingStore{Store: shared.Open(), read: make(chan struct{}), release: make(chan struct{})}
	l := NewLedger(store, DefaultKey, zaptest.NewLogger(t))

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		l.Load(ctx)
	}()
	<-store.read

	appended := make(chan error, 1)
	go func() {
		appended <- l.Append(ctx, Sale{ID: 1, Title: "Savon", Qty: 1, Price: 2, Payment: PaymentCard})
	}()

	// Give the append a chance to run while the read is outstanding.
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	<-loaded
	require.NoError(t, <-appended)

	require.NoError(t, l.Append(ctx, Sale{ID: 2, Title: "Parfum", Qty: 1, Price: 30, Payment: PaymentCard}))

	other := NewLedger(shared.Open(), DefaultKey, nil)
	var got []int64
	for _, s := range other.Load(ctx) {
		got = append(got, s.ID)
	}
	assert.Equal(t, []int64{1, 2}, got, "the first sale must survive the concurrent reload")
	assert.Equal(t, 2, l.Len())
}
