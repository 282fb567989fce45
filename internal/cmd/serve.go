package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/gateway"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// shutdownTimeout bounds how long serve waits for sockets to drain.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host debate channels over websockets",
	Long: `Start the websocket gateway. Clients connect to

  ws://<addr>/channels/<channel>/ws?user=<id>&name=<display name>

and send JSON frames such as {"action":"join"} or
{"action":"message","content":"..."}. Connections presenting the
configured admin token may create, start and stop sessions.

When a config file is in use, edits to topics, moderation lists and the
channel allowlist apply to sessions created after the change.`,
	RunE: runServe,
}

var (
	serveAddr    string
	serveNoWatch bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload the config file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		_ = logger.Close()
		return err
	}
	defer rt.Close()

	if file := viper.ConfigFileUsed(); file != "" && !serveNoWatch {
		config.Watch(viper.GetViper(), reloadHandler(rt.orch, logger))
		logger.Info("watching config file", "file", file)
	}

	srv := gateway.NewServer(cfg.Server, rt.orch, rt.bus, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Arena gateway listening on %s (ctrl+c to stop)\n", cfg.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Arena gateway stopped.")
	return nil
}

// reloadHandler applies a changed config file to orch. Invalid files are
// logged and leave the current catalog in force.
func reloadHandler(orch *arena.Orchestrator, logger *logging.Logger) func(*config.Config, error) {
	return func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload rejected", "error", err.Error())
			return
		}
		if err := orch.ApplyConfig(cfg); err != nil {
			logger.Warn("config reload rejected", "error", err.Error())
			return
		}
		logger.Info("config reloaded", "topics", len(cfg.Topics))
	}
}
