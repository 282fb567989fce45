package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"golang.org/x/term"
)

// runtime is the wiring shared by the commands that host debates.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	orch   *arena.Orchestrator
}

// loadConfig decodes and validates the active configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger opens the arena log described by cfg. When quiet is set and no
// log directory is configured, output is discarded instead of going to
// stderr, so it cannot interfere with a full-screen or scripted display.
func newLogger(cfg *config.Config, quiet bool) (*logging.Logger, error) {
	if quiet && cfg.Logging.Dir == "" {
		return logging.NopLogger(), nil
	}
	rotation := logging.RotationMB(cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, rotation)
}

// newRuntime builds the bus, registry and orchestrator for cfg.
func newRuntime(cfg *config.Config, logger *logging.Logger) (*runtime, error) {
	cat, err := arena.NewCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	bus := event.NewBus(logger)
	orch := arena.New(debate.NewRegistry(), bus, arena.Options{
		Catalog: cat,
		Logger:  logger,
	})
	return &runtime{cfg: cfg, logger: logger, bus: bus, orch: orch}, nil
}

// Close cancels pending timers, drops bus subscriptions and closes the log.
func (r *runtime) Close() {
	r.orch.Close()
	r.bus.Clear()
	_ = r.logger.Close()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the column count of w, or 0 when w is not a
// terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
