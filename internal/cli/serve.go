package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sorinen/service-boutique/api"
	"github.com/Sorinen/service-boutique/internal/metrics"
	"github.com/Sorinen/service-boutique/internal/monitor"
)

const shutdownTimeout = 5 * time.Second

type serveCmd struct {
	app  *App
	port string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard and history pages of one view" }
func (*serveCmd) Usage() string {
	return `boutique serve [-port <port>]

  Serves the dashboard (/), the history (/ventes) and the JSON API, and keeps
  them current with the sales other views record.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "HTTP port, overrides the configured one")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		fmt.Fprintf(c.app.Stderr, "Error: %v\n", err)
		return exitStatus(err)
	}
	return subcommands.ExitSuccess
}

func (c *serveCmd) run(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	v, err := openView(ctx, c.app.ConfigPath, m)
	if err != nil {
		return err
	}
	defer v.Close()
	if c.port != "" {
		v.cfg.HTTP.Port = c.port
	}

	mon := monitor.New(v.ledger, []monitor.Source{
		monitor.Interval(v.cfg.Sync.Interval),
		monitor.Notifications(v.slot, v.ledger.Key()),
	}, v.logger, monitor.WithMetrics(m))
	hub := api.NewHub()
	mon.OnChange(hub.Publish)

	if v.cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	deps := api.Dependencies{
		Service:   v.service,
		Notifier:  mon,
		Hub:       hub,
		Logger:    v.logger,
		Metrics:   m,
		Location:  v.loc,
		RateLimit: rate.Limit(v.cfg.HTTP.RateLimit),
		RateBurst: v.cfg.HTTP.RateBurst,
		Version:   Version,
	}
	if v.cfg.Metrics.Enabled {
		deps.Gatherer = reg
	}
	if err := api.InitRoutes(engine, deps); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              ":" + v.cfg.HTTP.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Live streams stay open, so no write timeout. They end with ctx.
		WriteTimeout: 0,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		return mon.Run(ctx)
	})
	g.Go(func() error {
		v.logger.Info("HTTP server started",
			zap.String("addr", srv.Addr),
			zap.String("slot", v.cfg.Slot.Backend),
			zap.String("key", v.ledger.Key()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			v.logger.Warn("graceful shutdown interrupted", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	v.logger.Info("graceful shutdown complete")
	return err
}
