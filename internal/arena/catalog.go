package arena

import (
	"fmt"
	"slices"

	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/moderation"
)

// Catalog is the hot-reloadable part of the configuration. A session
// captures the catalog in force when it is created and keeps it until it
// ends, so a reload only affects new sessions.
type Catalog struct {
	Debate   debate.Config
	Topics   []string
	Filter   *moderation.Filter
	Channels *ChannelPolicy
}

// NewCatalog builds a catalog from a validated configuration. Configured
// attack patterns replace the built-in set; an empty list keeps it.
func NewCatalog(cfg *config.Config) (*Catalog, error) {
	patterns := cfg.Moderation.AttackPatterns
	if len(patterns) == 0 {
		patterns = moderation.DefaultAttackPatterns
	}
	filter, err := moderation.New(cfg.Moderation.ProhibitedWords, patterns)
	if err != nil {
		return nil, fmt.Errorf("build moderation filter: %w", err)
	}

	channels, err := NewChannelPolicy(cfg.Channels.Allowed)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		Debate:   cfg.Debate,
		Topics:   slices.Clone(cfg.Topics),
		Filter:   filter,
		Channels: channels,
	}, nil
}

// DefaultCatalog returns the catalog of the built-in configuration.
func DefaultCatalog() *Catalog {
	cat, err := NewCatalog(config.Default())
	if err != nil {
		panic(err)
	}
	return cat
}
