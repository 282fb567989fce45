package tui

import (
	"context"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/event"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the console and blocks until the user quits or ctx is done.
func Run(ctx context.Context, orch *arena.Orchestrator, bus *event.Bus, opts Options) error {
	model := New(orch, bus, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
