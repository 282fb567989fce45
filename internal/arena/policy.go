package arena

import (
	"fmt"
	"slices"

	"github.com/gobwas/glob"
)

// channelSeparator splits hierarchical channel IDs ("guild/channel") so
// that "*" stays within one segment and "**" crosses segments.
const channelSeparator = '/'

// ChannelPolicy decides which channels may host a debate.
type ChannelPolicy struct {
	patterns []string
	globs    []glob.Glob
}

// NewChannelPolicy compiles the allowlist. An empty list allows every
// channel.
func NewChannelPolicy(patterns []string) (*ChannelPolicy, error) {
	p := &ChannelPolicy{patterns: slices.Clone(patterns)}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, channelSeparator)
		if err != nil {
			return nil, fmt.Errorf("channel pattern %q: %w", pattern, err)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// Allows reports whether channelID matches the allowlist. A nil policy
// allows everything.
func (p *ChannelPolicy) Allows(channelID string) bool {
	if p == nil || len(p.globs) == 0 {
		return true
	}
	for _, g := range p.globs {
		if g.Match(channelID) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the configured patterns.
func (p *ChannelPolicy) Patterns() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.patterns)
}
