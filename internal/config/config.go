// Package config loads the arena configuration through viper: debate
// limits, the topic and moderation catalog, the channel allowlist, the
// gateway listener, and logging.
package config

import (
	"os"
	"path/filepath"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/spf13/viper"
)

// Config holds all arena configuration.
type Config struct {
	// Debate holds the per-session limits. Each new session captures a copy.
	Debate debate.Config `mapstructure:"debate" yaml:"debate"`
	// Topics is the pool a topic is drawn from when a debate starts.
	Topics []string `mapstructure:"topics" yaml:"topics"`
	// Moderation configures the content filter.
	Moderation ModerationConfig `mapstructure:"moderation" yaml:"moderation"`
	// Channels restricts where sessions may be created.
	Channels ChannelsConfig `mapstructure:"channels" yaml:"channels"`
	// Server configures the websocket gateway.
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	// Logging configures the arena log.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ModerationConfig controls the moderation filter
type ModerationConfig struct {
	// ProhibitedWords are matched case-insensitively as substrings.
	ProhibitedWords []string `mapstructure:"prohibited_words" yaml:"prohibited_words"`
	// AttackPatterns are regular expressions checked in order after the
	// word list. When empty the built-in English and Japanese set is used.
	AttackPatterns []string `mapstructure:"attack_patterns" yaml:"attack_patterns"`
}

// ChannelsConfig controls which channels may host debates
type ChannelsConfig struct {
	// Allowed lists glob patterns such as "guild-*/debate-*". An empty list
	// allows every channel.
	Allowed []string `mapstructure:"allowed" yaml:"allowed"`
}

// ServerConfig controls the websocket gateway
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `mapstructure:"addr" yaml:"addr"`
	// AllowedOrigins lists CORS origins for browser clients (default: "*")
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// AdminToken grants the privileged role to connections presenting it.
	// An empty token means nobody can create or stop sessions remotely.
	AdminToken string `mapstructure:"admin_token" yaml:"admin_token"`
}

// LoggingConfig controls the arena log
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory holding arena.log. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the log size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// DefaultTopics is the topic pool used when none is configured.
var DefaultTopics = []string{
	"Remote work is better than working in an office",
	"Cities should ban private cars from their centres",
	"Homework should be abolished in primary schools",
	"Social media does more harm than good",
	"Space exploration is worth its cost",
	"Cash should be phased out",
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Debate: debate.DefaultConfig(),
		Topics: append([]string(nil), DefaultTopics...),
		Moderation: ModerationConfig{
			ProhibitedWords: []string{},
			AttackPatterns:  []string{},
		},
		Channels: ChannelsConfig{
			Allowed: []string{},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers every default with viper so that config files only
// need to mention what they change.
func SetDefaults() {
	defaults := Default()

	// Debate defaults
	viper.SetDefault("debate.recruit_time_minutes", defaults.Debate.RecruitTimeMinutes)
	viper.SetDefault("debate.message_limit", defaults.Debate.MessageLimitPerPerson)
	viper.SetDefault("debate.max_chars", defaults.Debate.MaxCharsPerMessage)

	// Catalog defaults
	viper.SetDefault("topics", defaults.Topics)
	viper.SetDefault("moderation.prohibited_words", defaults.Moderation.ProhibitedWords)
	viper.SetDefault("moderation.attack_patterns", defaults.Moderation.AttackPatterns)

	// Channel defaults
	viper.SetDefault("channels.allowed", defaults.Channels.Allowed)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	viper.SetDefault("server.admin_token", defaults.Server.AdminToken)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return decode(viper.GetViper())
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded configuration is invalid.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "arena")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arena"
	}
	return filepath.Join(home, ".config", "arena")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
