package sales

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest" // Para un logger de prueba

	"github.com/Sorinen/service-boutique/internal/kv"
)

func newTestService(t *testing.T, slot kv.Store, now time.Time) *Service {
	t.Helper()
	ledger := NewLedger(slot, DefaultKey, zaptest.NewLogger(t))
	ledger.Load(context.Background())
	return NewService(ledger, zaptest.NewLogger(t), WithClock(func() time.Time { return now }))
}

// TestNewService verifica la inicialización del servicio.
func TestNewService(t *testing.T) {
	ledger := NewLedger(kv.NewShared().Open(), DefaultKey, nil)
	svc := NewService(ledger, nil)

	require.NotNil(t, svc)
	assert.Same(t, ledger, svc.Ledger())
	assert.NotNil(t, svc.logger)
	assert.WithinDuration(t, time.Now(), svc.Now(), time.Minute)
}

func TestCreateSale(t *testing.T) {
	svc := newTestService(t, kv.NewShared().Open(), refNow)

	got, err := svc.CreateSale(context.Background(), SaleInput{Title: "  Parfum  ", Qty: 2, Price: 45})
	require.NoError(t, err)

	assert.Equal(t, refNow.UnixMilli(), got.ID)
	assert.Equal(t, "Parfum", got.Title)
	assert.Equal(t, PaymentCard, got.Payment)
	assert.True(t, refNow.Equal(got.Date))
	assert.Equal(t, []Sale{*got}, svc.List())
}

func TestCreateSale_IDsStayIncreasing(t *testing.T) {
	svc := newTestService(t, kv.NewShared().Open(), refNow)
	ctx := context.Background()

	first, err := svc.CreateSale(ctx, SaleInput{Title: "A", Qty: 1, Price: 1})
	require.NoError(t, err)
	second, err := svc.CreateSale(ctx, SaleInput{Title: "B", Qty: 1, Price: 1, Payment: PaymentCash})
	require.NoError(t, err)

	assert.Equal(t, first.ID+1, second.ID)
	assert.Equal(t, PaymentCash, second.Payment)
}

func TestCreateSale_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   SaleInput
		err  error
	}{
		{"blank title", SaleInput{Title: "   ", Qty: 1, Price: 1}, ErrEmptyTitle},
		{"zero qty", SaleInput{Title: "A", Qty: 0, Price: 1}, ErrInvalidQuantity},
		{"negative qty", SaleInput{Title: "A", Qty: -3, Price: 1}, ErrInvalidQuantity},
		{"zero price", SaleInput{Title: "A", Qty: 1, Price: 0}, ErrInvalidPrice},
		{"negative price", SaleInput{Title: "A", Qty: 1, Price: -2}, ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			shared := kv.NewShared()
			svc := newTestService(t, shared.Open(), refNow)

			got, err := svc.CreateSale(ctx, tt.in)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, got)

			// Nothing reached the slot: a fresh view still loads an empty ledger.
			other := NewLedger(shared.Open(), DefaultKey, zaptest.NewLogger(t))
			assert.Empty(t, other.Load(ctx))
			assert.Empty(t, svc.List())
		})
	}
}

func TestCreateSale_WriteFailure(t *testing.T) {
	svc := newTestService(t, failingStore{Store: kv.NewShared().Open()}, refNow)

	_, err := svc.CreateSale(context.Background(), SaleInput{Title: "A", Qty: 1, Price: 1})
	assert.ErrorIs(t, err, errDisk)
	assert.Empty(t, svc.List())
}

func TestDashboardAndHistory(t *testing.T) {
	ctx := context.Background()
	slot := kv.NewShared().Open()
	seed := NewLedger(slot, DefaultKey, zaptest.NewLogger(t))
	for _, s := range fixture() {
		require.NoError(t, seed.Append(ctx, s))
	}
	svc := newTestService(t, slot, refNow)

	d := svc.Dashboard(refNow)
	assert.True(t, dec("173.17").Equal(d.Summary.Total))
	assert.Equal(t, []int64{6, 5, 4, 3, 2, 1}, ids(d.Recent))
	assert.Equal(t, int64(100), d.Chart.Scale.Max)

	h := svc.History(WindowWeek, refNow)
	assert.Equal(t, WindowWeek, h.Window)
	assert.Equal(t, []int64{5, 4}, ids(h.Sales))
	assert.Equal(t, 2, h.Count)
	assert.True(t, dec("67.2").Equal(h.Total))

	got, err := svc.Get(4)
	require.NoError(t, err)
	assert.Equal(t, "Parfum", got.Title)
	_, err = svc.Get(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExports(t *testing.T) {
	svc := newTestService(t, kv.NewShared().Open(), refNow)
	ctx := context.Background()
	_, err := svc.CreateSale(ctx, SaleInput{Title: "Mascara", Qty: 2, Price: 11.1})
	require.NoError(t, err)

	csv, err := svc.ExportCSV(WindowDay, refNow)
	require.NoError(t, err)
	assert.Equal(t, "ventes_day.csv", csv.Name)
	assert.Equal(t, ContentTypeCSV, csv.ContentType)
	lines := strings.Split(strings.TrimSpace(string(csv.Data)), "\n")
	assert.Equal(t, []string{
		"Date,Produit,Quantité,Paiement,Total (€)",
		`12/03/2025,"Mascara",2,Carte,22.2`,
	}, lines)

	xlsx, err := svc.ExportXLSX(WindowYear, refNow)
	require.NoError(t, err)
	assert.Equal(t, "ventes_year.xlsx", xlsx.Name)
	assert.NotEmpty(t, xlsx.Data)
}
