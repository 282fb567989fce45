// Package script replays scripted debates from YAML scenario files. A
// scenario names the participants and the messages they send; the runner
// drives a real orchestrator through recruitment, the debate and scoring,
// and prints every notice a chat channel would see.
package script

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/errors"
	"gopkg.in/yaml.v3"
)

// Placeholders usable in a step's "from" field. They resolve to the
// debaters drawn for Side A and Side B.
const (
	SideA = "$A"
	SideB = "$B"
)

// ActionStop in a step ends the session as the scenario's administrator.
const ActionStop = "stop"

//go:embed default.yaml
var defaultScenario []byte

// Participant is one member who joins during recruitment.
type Participant struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Step is one scripted action after the debaters are drawn: a message from
// a participant, or an administrative stop.
type Step struct {
	From   string `yaml:"from,omitempty"`
	Text   string `yaml:"text,omitempty"`
	Action string `yaml:"action,omitempty"`
}

// Scenario describes a complete scripted debate.
type Scenario struct {
	Name    string `yaml:"name"`
	Channel string `yaml:"channel"`
	Admin   string `yaml:"admin"`
	// Seed makes the debater and topic draw reproducible.
	Seed uint64 `yaml:"seed"`
	// Debate overrides the configured limits; zero fields keep them.
	Debate debate.Config `yaml:"debate"`
	// Topics replaces the configured topic list when non-empty.
	Topics       []string      `yaml:"topics"`
	Participants []Participant `yaml:"participants"`
	Steps        []Step        `yaml:"steps"`
}

// Parse decodes and validates a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Default returns the built-in demonstration scenario.
func Default() *Scenario {
	sc, err := Parse(defaultScenario)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario is invalid: %v", err))
	}
	return sc
}

// Marshal encodes the scenario as YAML.
func (sc *Scenario) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Channel == "" {
		sc.Channel = "simulation"
	}
	if sc.Admin == "" {
		sc.Admin = "moderator"
	}
	for i := range sc.Participants {
		if sc.Participants[i].Name == "" {
			sc.Participants[i].Name = sc.Participants[i].ID
		}
	}
}

// Validate checks participants and steps for consistency.
func (sc *Scenario) Validate() error {
	seen := make(map[string]bool, len(sc.Participants))
	for i, p := range sc.Participants {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("%w: participants[%d]: id is required", errors.ErrInvalidInput, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: participants[%d]: duplicate id %q", errors.ErrInvalidInput, i, id)
		}
		seen[id] = true
	}

	for i, st := range sc.Steps {
		switch st.Action {
		case "":
			if st.From != SideA && st.From != SideB && !seen[st.From] {
				return fmt.Errorf("%w: steps[%d]: unknown sender %q", errors.ErrInvalidInput, i, st.From)
			}
		case ActionStop:
		default:
			return fmt.Errorf("%w: steps[%d]: unknown action %q", errors.ErrInvalidInput, i, st.Action)
		}
	}
	return nil
}

// displayName returns the scripted name of a participant.
func (sc *Scenario) displayName(id string) string {
	for _, p := range sc.Participants {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}
