// Package cli holds the boutique subcommands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/config"
	"github.com/Sorinen/service-boutique/internal/kv"
	"github.com/Sorinen/service-boutique/internal/kv/broadcast"
	"github.com/Sorinen/service-boutique/internal/logger"
	"github.com/Sorinen/service-boutique/internal/metrics"
	"github.com/Sorinen/service-boutique/internal/sales"
)

// view is one process's handle on the shared ledger.
type view struct {
	cfg     *config.Config
	loc     *time.Location
	logger  *zap.Logger
	slot    kv.Slot
	ledger  *sales.Ledger
	service *sales.Service
}

// loadConfig reads and validates the configuration at path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSlot opens the backend named by the config, wrapped by the AMQP
// broadcaster when a broker URL is set.
func openSlot(cfg *config.Config, shared *kv.Shared, logger *zap.Logger) (kv.Slot, error) {
	var (
		slot kv.Slot
		err  error
	)
	switch cfg.Slot.Backend {
	case config.BackendMemory:
		if shared == nil {
			shared = kv.NewShared()
		}
		slot = shared.Open()
	case config.BackendFile:
		slot, err = kv.NewFileStore(cfg.Slot.DataDir, logger)
	case config.BackendSQLite:
		slot, err = kv.NewSQLiteStore(cfg.Slot.SQLitePath, cfg.Slot.WatchInterval, logger)
	default:
		err = fmt.Errorf("unknown slot backend %q", cfg.Slot.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s slot: %w", cfg.Slot.Backend, err)
	}

	if cfg.AMQP.URL == "" {
		return slot, nil
	}
	b, err := broadcast.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, slot, logger)
	if err != nil {
		slot.Close()
		return nil, fmt.Errorf("connect broadcast: %w", err)
	}
	return b, nil
}

// openView loads the config at path and builds the ledger and service on top
// of the configured slot. m may be nil.
func openView(ctx context.Context, path string, m *metrics.Metrics) (*view, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Production(), uuid.NewString()[:8])
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	slot, err := openSlot(cfg, nil, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	ledger := sales.NewLedger(slot, cfg.Slot.Key, log)
	ledger.Load(ctx)

	service := sales.NewService(ledger, log,
		sales.WithClock(func() time.Time { return time.Now().In(loc) }),
		sales.WithMetrics(m),
	)

	return &view{
		cfg:     cfg,
		loc:     loc,
		logger:  log,
		slot:    slot,
		ledger:  ledger,
		service: service,
	}, nil
}

func (v *view) Close() error {
	err := v.slot.Close()
	_ = v.logger.Sync()
	return err
}
