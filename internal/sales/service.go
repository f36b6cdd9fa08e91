package sales

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/metrics"
)

// Service is the entry point for recording and reading sales of one view.
type Service struct {
	ledger  *Ledger
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu sync.Mutex // serializes id assignment and append
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records sales in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service over ledger.
func NewService(ledger *Ledger, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
		defer logger.Sync() // flushes buffer, if any
	}

	s := &Service{
		ledger: ledger,
		logger: logger.Named("sales"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns the ledger the service writes to.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Now returns the service clock's current instant.
func (s *Service) Now() time.Time { return s.now() }

// CreateSale validates in and appends the resulting sale. Invalid input never
// reaches the ledger.
func (s *Service) CreateSale(ctx context.Context, in SaleInput) (*Sale, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		s.logger.Warn("sale rejected", zap.String("title", in.Title), zap.Int("qty", in.Qty),
			zap.Float64("price", in.Price), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sale := Sale{
		ID:      now.UnixMilli(),
		Title:   in.Title,
		Qty:     in.Qty,
		Price:   in.Price,
		Payment: in.Payment,
		Date:    now,
	}
	if last, ok := s.ledger.Last(); ok && sale.ID <= last.ID {
		sale.ID = last.ID + 1
	}

	if err := s.ledger.Append(ctx, sale); err != nil {
		s.logger.Error("failed to save sale", zap.Int64("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}

	amount, _ := sale.Amount().Float64()
	s.metrics.SaleRecorded(sale.Payment, amount, s.ledger.Len())
	s.logger.Info("sale created",
		zap.Int64("sale_id", sale.ID),
		zap.String("title", sale.Title),
		zap.Int("qty", sale.Qty),
		zap.Float64("price", sale.Price),
		zap.String("payment", sale.Payment),
	)
	return &sale, nil
}

// Dashboard is the data behind the home page.
type Dashboard struct {
	Summary Summary   `json:"summary"`
	Chart   Chart     `json:"chart"`
	Recent  []Sale    `json:"recent"`
	At      time.Time `json:"at"`
}

// Dashboard computes the home page from the current snapshot.
func (s *Service) Dashboard(now time.Time) Dashboard {
	snapshot := s.ledger.Snapshot()
	summary := Aggregate(snapshot, now)
	return Dashboard{
		Summary: summary,
		Chart:   NewChart(summary.Daily),
		Recent:  Reverse(snapshot),
		At:      now,
	}
}

// History is a filtered selection shown most recent first.
type History struct {
	Window Window          `json:"filter"`
	Sales  []Sale          `json:"sales"`
	Total  decimal.Decimal `json:"total_revenue"`
	Count  int             `json:"count"`
}

// History filters the current snapshot by w.
func (s *Service) History(w Window, now time.Time) History {
	selected := Filter(s.ledger.Snapshot(), w, now)
	total, count := Totals(selected)
	return History{
		Window: w,
		Sales:  Reverse(selected),
		Total:  total,
		Count:  count,
	}
}

// Get returns the sale with id.
func (s *Service) Get(id int64) (*Sale, error) {
	for _, sale := range s.ledger.Snapshot() {
		if sale.ID == id {
			return &sale, nil
		}
	}
	return nil, ErrNotFound
}

// List returns every sale in ledger order.
func (s *Service) List() []Sale {
	return s.ledger.Snapshot()
}

// Export is a rendered export file.
type Export struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportCSV renders the sales in w, chronologically, as CSV.
func (s *Service) ExportCSV(w Window, now time.Time) (Export, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Filter(s.ledger.Snapshot(), w, now), now.Location()); err != nil {
		return Export{}, err
	}
	return Export{Name: ExportFileName(w, "csv"), ContentType: ContentTypeCSV, Data: buf.Bytes()}, nil
}

// ExportXLSX renders the sales in w, chronologically, as a workbook.
func (s *Service) ExportXLSX(w Window, now time.Time) (Export, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, Filter(s.ledger.Snapshot(), w, now), now.Location()); err != nil {
		return Export{}, err
	}
	return Export{Name: ExportFileName(w, "xlsx"), ContentType: ContentTypeXLSX, Data: buf.Bytes()}, nil
}
