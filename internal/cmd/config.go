package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Iron-Ham/arena/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify arena configuration",
	Long: `View or modify arena configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  arena config set debate.message_limit 3
  arena config set server.addr :9090

Valid keys:
  debate.recruit_time_minutes - Minutes the recruitment window stays open
  debate.message_limit        - Messages each debater may post
  debate.max_chars            - Maximum characters per debate message
  server.addr                 - Gateway listen address
  server.admin_token          - Token granting the administrator role
  logging.level               - Options: debug, info, warn, error
  logging.dir                 - Directory for arena.log (empty logs to stderr)

Topics, moderation lists and the channel allowlist are lists; edit them in
the config file directly.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at $XDG_CONFIG_HOME/arena/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys maps each key accepted by "config set" to its value kind.
var settableKeys = map[string]string{
	"debate.recruit_time_minutes": "int",
	"debate.message_limit":        "int",
	"debate.max_chars":            "int",
	"server.addr":                 "string",
	"server.admin_token":          "string",
	"logging.level":               "string",
	"logging.dir":                 "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	shown := *cfg
	if shown.Server.AdminToken != "" {
		shown.Server.AdminToken = "(set)"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'arena config set --help' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	}

	viper.Set(key, typedValue)
	if _, err := loadConfig(); err != nil {
		return err
	}

	// Ensure config directory exists
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	if key == "server.admin_token" {
		fmt.Fprintf(out, "Set %s\n", key)
	} else {
		fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	}
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'arena config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize arena's behavior.")

	return nil
}

// defaultConfigFile renders a commented config file holding the defaults.
func defaultConfigFile() string {
	defaults := config.Default()

	var topics strings.Builder
	for _, topic := range defaults.Topics {
		fmt.Fprintf(&topics, "  - %q\n", topic)
	}

	return fmt.Sprintf(`# Arena Configuration

debate:
  # Minutes participants have to join before debaters are drawn
  recruit_time_minutes: %d
  # Messages each debater may post
  message_limit: %d
  # Maximum characters per debate message
  max_chars: %d

# Pool a topic is drawn from when a debate starts
topics:
%s
moderation:
  # Words rejected anywhere in a message (case-insensitive)
  prohibited_words: []
  # Regular expressions for personal attacks; empty uses the built-in set
  attack_patterns: []

channels:
  # Glob patterns for channels that may host debates, e.g. "guild-*/debate-*"
  # An empty list allows every channel.
  allowed: []

server:
  # Gateway listen address
  addr: %q
  # Origins allowed to open websockets from a browser
  allowed_origins: ["*"]
  # Token granting the administrator role; empty disables remote admin
  admin_token: ""

logging:
  # Options: debug, info, warn, error
  level: %s
  # Directory for arena.log; empty logs to stderr
  dir: ""
  max_size_mb: %d
  max_backups: %d
`,
		defaults.Debate.RecruitTimeMinutes,
		defaults.Debate.MessageLimitPerPerson,
		defaults.Debate.MaxCharsPerMessage,
		topics.String(),
		defaults.Server.Addr,
		defaults.Logging.Level,
		defaults.Logging.MaxSizeMB,
		defaults.Logging.MaxBackups,
	)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. $HOME/.config/arena/config.yaml")
	fmt.Fprintln(out, "  3. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: ARENA_* (e.g., ARENA_SERVER_ADMIN_TOKEN)")

	return nil
}
