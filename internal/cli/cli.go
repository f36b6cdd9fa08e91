package cli

import (
	"errors"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/Sorinen/service-boutique/internal/sales"
)

// Version is reported by /api/status. Set at build time with -ldflags.
var Version = "dev"

// App carries what every subcommand shares.
type App struct {
	ConfigPath string
	Stdout     io.Writer
	Stderr     io.Writer
}

// NewApp writes to the process streams.
func NewApp(configPath string) *App {
	return &App{ConfigPath: configPath, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Register the subcommands.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&serveCmd{app: app}, "views")

	c.Register(&addCmd{app: app}, "sales")
	c.Register(&listCmd{app: app}, "sales")
	c.Register(&statsCmd{app: app}, "sales")
	c.Register(&exportCmd{app: app}, "sales")
}

// exitStatus maps rejected input to a usage error, anything else to a failure.
func exitStatus(err error) subcommands.ExitStatus {
	switch {
	case errors.Is(err, sales.ErrEmptyTitle),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInvalidPrice):
		return subcommands.ExitUsageError
	default:
		return subcommands.ExitFailure
	}
}
