package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// isolate points every config search path at a fresh directory and
// returns the directory arena's config file lives in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	return filepath.Join(home, "xdg", "arena")
}

// resetFlags restores every flag of c and its subcommands to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs rootCmd with args against a clean viper instance.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	bindFlags()
	resetFlags(rootCmd)
	t.Cleanup(viper.Reset)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "local", "simulate", "topics", "config"} {
		if !slices.Contains(names, want) {
			t.Errorf("rootCmd missing subcommand %q (have %v)", want, names)
		}
	}
}

func TestTopicsCommand(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "topics")
	if err != nil {
		t.Fatalf("topics error = %v", err)
	}
	if !strings.Contains(out, "Debate topics:") {
		t.Errorf("output = %q, want the topic header", out)
	}
	if !strings.Contains(out, "1. "+config.DefaultTopics[0]) {
		t.Errorf("output = %q, want the first default topic", out)
	}
}

func TestTopicsCommand_ConfigFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "arena.yaml", "topics:\n  - Tabs beat spaces\n")

	out, err := executeCommand(t, "--config", path, "topics")
	if err != nil {
		t.Fatalf("topics error = %v", err)
	}
	if !strings.Contains(out, "1. Tabs beat spaces") {
		t.Errorf("output = %q, want the configured topic", out)
	}
	if strings.Contains(out, "2. ") {
		t.Errorf("output = %q, want only one topic", out)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	isolate(t)
	path := writeFile(t, "arena.yaml", "debate:\n  message_limit: 0\n")

	_, err := executeCommand(t, "--config", path, "topics")
	if err == nil {
		t.Fatal("expected an error for message_limit 0")
	}
	for _, want := range []string{"invalid configuration", "debate.message_limit", "must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to mention %q", err, want)
		}
	}
}

func TestSimulateCommand_DefaultScenario(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "simulate")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	for _, want := range []string{
		"A debate is starting!",
		"Structural score",
		`Scenario "Tea or coffee" finished: completed.`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("output to a buffer should not carry ANSI escapes")
	}
}

func TestSimulateCommand_SeedIsDeterministic(t *testing.T) {
	isolate(t)

	first, err := executeCommand(t, "simulate", "--seed", "42")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	second, err := executeCommand(t, "simulate", "--seed", "42")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	if first != second {
		t.Error("two runs with the same seed produced different output")
	}
}

func TestSimulateCommand_Example(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "simulate", "--example")
	if err != nil {
		t.Fatalf("simulate --example error = %v", err)
	}
	for _, want := range []string{"name: Tea or coffee", "participants:", "steps:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "finished") {
		t.Error("--example should not run the scenario")
	}
}

func TestSimulateCommand_ScenarioFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "lonely.yaml", "name: Lonely\nparticipants:\n  - id: alice\nsteps:\n  - from: alice\n    text: hello\n")

	out, err := executeCommand(t, "simulate", path)
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	want := `Scenario "Lonely" finished: ` + debate.OutcomeInsufficientParticipants.Describe() + "."
	if !strings.Contains(out, want) {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSimulateCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown field",
			content: "participants: []\nspeakers: []\n",
			want:    "speakers",
		},
		{
			name:    "unknown sender",
			content: "participants:\n  - id: alice\nsteps:\n  - from: mallory\n    text: hi\n",
			want:    "mallory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeFile(t, "bad.yaml", tt.content)
			_, err := executeCommand(t, "simulate", path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		if _, err := executeCommand(t, "simulate", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error for a missing scenario")
		}
	})
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	out, err := executeCommand(t, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	file := filepath.Join(dir, "config.yaml")
	if !strings.Contains(out, "Created config file at "+file) {
		t.Errorf("output = %q", out)
	}

	// The generated file must load back to the defaults.
	out, err = executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "Config file: "+file) {
		t.Errorf("show output = %q, want the new file in use", out)
	}
	for _, want := range []string{"message_limit: 5", "max_chars: 500", config.DefaultTopics[1]} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q", want)
		}
	}

	if _, err := executeCommand(t, "config", "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init error = %v, want already exists", err)
	}
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)

	out, err := executeCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	for _, want := range []string{
		"Default path: " + filepath.Join(dir, "config.yaml") + " (not created)",
		"Search paths:",
		"ARENA_",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestConfigShow_HidesAdminToken(t *testing.T) {
	isolate(t)
	t.Setenv("ARENA_SERVER_ADMIN_TOKEN", "hunter2")

	out, err := executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Error("config show printed the admin token")
	}
	if !strings.Contains(out, "(set)") {
		t.Errorf("output = %q, want the token marked as set", out)
	}
	if !strings.Contains(out, "Config file: (none - using defaults)") {
		t.Errorf("output = %q, want defaults notice", out)
	}
}

func TestLogLevelFlag(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "--log-level", "debug", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "level: debug") {
		t.Errorf("output = %q, want level: debug", out)
	}
}

func TestConfigSet(t *testing.T) {
	dir := isolate(t)

	out, err := executeCommand(t, "config", "set", "debate.message_limit", "3")
	if err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if !strings.Contains(out, "Set debate.message_limit = 3") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, err = executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "message_limit: 3") {
		t.Errorf("show output = %q, want message_limit: 3", out)
	}
}

func TestConfigSet_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"unknown key", "debate.rounds", "3", "unknown configuration key"},
		{"not an integer", "debate.max_chars", "lots", "expected integer"},
		{"fails validation", "debate.max_chars", "0", "must be positive"},
		{"bad log level", "logging.level", "loud", "must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			_, err := executeCommand(t, "config", "set", tt.key, tt.value)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
			if _, err := os.Stat(filepath.Join(dir, "config.yaml")); !os.IsNotExist(err) {
				t.Error("a rejected value must not be written")
			}
		})
	}
}

func TestReloadHandler(t *testing.T) {
	orch := arena.New(debate.NewRegistry(), event.NewBus(nil), arena.Options{})
	defer orch.Close()
	reload := reloadHandler(orch, logging.NopLogger())

	next := config.Default()
	next.Topics = []string{"Pineapple belongs on pizza"}
	reload(next, nil)
	if got := orch.Catalog().Topics; !slices.Equal(got, next.Topics) {
		t.Fatalf("Topics = %v, want %v", got, next.Topics)
	}

	reload(nil, config.ValidationErrors{{Field: "debate.max_chars", Message: "must be positive"}})
	if got := orch.Catalog().Topics; !slices.Equal(got, next.Topics) {
		t.Errorf("Topics = %v after a rejected reload, want %v", got, next.Topics)
	}

	broken := config.Default()
	broken.Moderation.AttackPatterns = []string{"("}
	reload(broken, nil)
	if got := orch.Catalog().Topics; !slices.Equal(got, next.Topics) {
		t.Errorf("Topics = %v after an unbuildable catalog, want %v", got, next.Topics)
	}
}

func TestTerminalHelpers(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Error("isTerminal(buffer) = true, want false")
	}
	if got := terminalWidth(&buf); got != 0 {
		t.Errorf("terminalWidth(buffer) = %d, want 0", got)
	}
}
