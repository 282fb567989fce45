package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/arena/internal/tui"
	"github.com/spf13/cobra"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run a hot-seat debate in this terminal",
	Long: `Open a full-screen console bound to one local channel. Everyone shares
the keyboard: switch the active speaker with "/as <id> [name]" and type on
their behalf. The console acts as the channel administrator, so /create,
/start and /stop always succeed.`,
	RunE: runLocal,
}

var localChannel string

func init() {
	rootCmd.AddCommand(localCmd)

	localCmd.Flags().StringVar(&localChannel, "channel", "local", "channel name (subject to channels.allowed)")
}

func runLocal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, logger)
	if err != nil {
		_ = logger.Close()
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, rt.orch, rt.bus, tui.Options{
		Channel: localChannel,
		Plain:   !isTerminal(os.Stdout),
	})
}
