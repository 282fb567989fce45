package cmd

import (
	"fmt"

	"github.com/Iron-Ham/arena/internal/script"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml]",
	Short: "Replay a scripted debate",
	Long: `Replay a scripted debate against a simulated clock and print every
notice the channel would receive. Without a file the built-in scenario runs.

Steps may address the drawn debaters as "$A" and "$B", so a script works
whichever participants the seed selects. Use --example to print the
built-in scenario as a starting point.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

var (
	simulatePlain   bool
	simulateExample bool
	simulateSeed    uint64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVar(&simulatePlain, "plain", false, "disable colours")
	simulateCmd.Flags().BoolVar(&simulateExample, "example", false, "print the built-in scenario and exit")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 0, "override the scenario seed")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if simulateExample {
		data, err := script.Default().Marshal()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	sc := script.Default()
	if len(args) == 1 {
		loaded, err := script.Load(args[0])
		if err != nil {
			return err
		}
		sc = loaded
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = simulateSeed
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	runner := script.NewRunner(script.Options{
		Out:    out,
		Plain:  simulatePlain || !isTerminal(out),
		Width:  terminalWidth(out),
		Config: cfg,
		Logger: logger,
	})
	rep, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nScenario %q finished: %s.\n", sc.Name, rep.Outcome.Describe())
	if rep.Outcome.Scored() && rep.Score != nil {
		for _, b := range rep.Score.Authors {
			fmt.Fprintf(out, "  %-16s %.3f\n", b.AuthorName, b.Total)
		}
	}
	return nil
}
