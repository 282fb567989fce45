// Package tui provides a local hot-seat debate console. Everyone shares one
// terminal: the operator switches the active speaker with /as and types on
// their behalf, while the console shows the same notices a chat channel
// would receive.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/render"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	operatorID   = "operator"
	maxLogLines  = 500
	tickInterval = 250 * time.Millisecond
)

// tickMsg drives notice delivery and the recruitment countdown.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// noticeQueue holds rendered notices until the next tick. Notices can be
// published from the recruitment timer goroutine, outside Update.
type noticeQueue struct {
	mu    sync.Mutex
	lines []string
}

func (q *noticeQueue) push(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines = append(q.lines, text)
}

func (q *noticeQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.lines
	q.lines = nil
	return out
}

// nameBook maps identities to display names set with /as. The renderer
// reads it from the bus handler, which may run on the timer goroutine.
type nameBook struct {
	mu    sync.RWMutex
	names map[string]string
}

func (n *nameBook) get(id string) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if name, ok := n.names[id]; ok {
		return name
	}
	return id
}

func (n *nameBook) set(id, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names[id] = name
}

// Options configures the console.
type Options struct {
	// Channel names the local channel. Empty selects "local".
	Channel string
	// Plain disables styling in notices.
	Plain bool
}

// Model is the Bubbletea model for the hot-seat console.
type Model struct {
	orch     *arena.Orchestrator
	bus      *event.Bus
	subID    string
	channel  string
	renderer *render.Renderer
	queue    *noticeQueue
	names    *nameBook

	speaker   string
	textInput textinput.Model
	lines     []string
	width     int
	height    int
	errorMsg  string
	quitting  bool
}

// New creates a console bound to one channel of orch. Call Close when the
// program exits to drop the bus subscription.
func New(orch *arena.Orchestrator, bus *event.Bus, opts Options) Model {
	if opts.Channel == "" {
		opts.Channel = "local"
	}

	ti := textinput.New()
	ti.Placeholder = "type /help for commands"
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 60

	names := &nameBook{names: make(map[string]string)}
	renderer := render.New(render.Options{Plain: opts.Plain, Names: names.get})
	queue := &noticeQueue{}

	m := Model{
		orch:      orch,
		bus:       bus,
		channel:   opts.Channel,
		renderer:  renderer,
		queue:     queue,
		names:     names,
		textInput: ti,
	}
	m.subID = bus.SubscribeChannel(m.channel, func(e event.Event) {
		if text := renderer.Event(e); text != "" {
			queue.push(text)
		}
	})
	m.appendLines(render.Help("/") + "\n  /as        switch the active speaker: /as <id> [display name]")
	return m
}

// Close removes the console's bus subscription.
func (m Model) Close() {
	m.bus.Unsubscribe(m.subID)
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = max(msg.Width-len(m.prompt())-4, 10)
		return m, nil

	case tickMsg:
		m.appendLines(m.queue.drain()...)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.textInput.Value())
			m.textInput.SetValue("")
			m.errorMsg = ""
			if line == "" {
				return m, nil
			}
			if quit := m.execute(line); quit {
				m.quitting = true
				return m, tea.Quit
			}
			m.appendLines(m.queue.drain()...)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// execute runs one line of input. It reports whether the console should
// quit.
func (m *Model) execute(line string) bool {
	if !strings.HasPrefix(line, "/") {
		m.say(line)
		return false
	}

	fields := strings.Fields(line)
	operator := arena.Requester{ID: operatorID, Name: "Operator", Privileged: true}

	var err error
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return true

	case "/help":
		m.appendLines(render.Help("/"))

	case "/as":
		if len(fields) < 2 {
			m.errorMsg = "usage: /as <id> [display name]"
			return false
		}
		m.speaker = fields[1]
		if len(fields) > 2 {
			m.names.set(m.speaker, strings.Join(fields[2:], " "))
		}
		m.appendLines(render.Muted.Render("Now speaking as " + m.renderer.Name(m.speaker) + "."))

	case "/create":
		limits, ok := parseLimits(fields[1:])
		if !ok {
			m.errorMsg = createUsage
			return false
		}
		_, err = m.orch.CreateSession(operator, m.channel, limits)

	case "/join":
		if m.speaker == "" {
			m.errorMsg = "pick a speaker with /as <id> first"
			return false
		}
		_, err = m.orch.Join(m.channel, m.speaker)

	case "/start":
		err = m.orch.CloseRecruitment(operator, m.channel)

	case "/stop":
		err = m.orch.Stop(operator, m.channel)

	case "/status":
		var snap debate.Snapshot
		snap, err = m.orch.Session(m.channel)
		if err == nil {
			deadline, _ := m.orch.Deadline(m.channel)
			m.appendLines(m.renderer.Status(snap, deadline))
		}

	case "/topics":
		m.appendLines(render.Topics(m.orch.Catalog().Topics))

	default:
		m.errorMsg = fmt.Sprintf("unknown command %s (try /help)", fields[0])
	}

	if err != nil {
		m.errorMsg = errors.UserMessage(err)
	}
	return false
}

const createUsage = "usage: /create [recruit_minutes=N] [message_limit=N] [max_chars=N]"

// parseLimits reads "/create" arguments of the form key=number. No arguments
// selects the configured defaults.
func parseLimits(args []string) (*debate.Config, bool) {
	if len(args) == 0 {
		return nil, true
	}
	var cfg debate.Config
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		n, err := strconv.Atoi(value)
		if !found || err != nil {
			return nil, false
		}
		switch key {
		case "recruit_minutes":
			cfg.RecruitTimeMinutes = n
		case "message_limit":
			cfg.MessageLimitPerPerson = n
		case "max_chars":
			cfg.MaxCharsPerMessage = n
		default:
			return nil, false
		}
	}
	return &cfg, true
}

// say submits a chat message as the active speaker.
func (m *Model) say(text string) {
	if m.speaker == "" {
		m.errorMsg = "pick a speaker with /as <id> first"
		return
	}
	res := m.orch.HandleMessage(m.channel, debate.Message{
		AuthorID:   m.speaker,
		AuthorName: m.names.get(m.speaker),
		Content:    text,
		Timestamp:  time.Now(),
	})
	if res.Kind == debate.ResultIgnored {
		m.appendLines(render.Muted.Render(fmt.Sprintf("%s: %s", m.renderer.Name(m.speaker), render.Sanitize(text))))
	}
}

func (m *Model) appendLines(texts ...string) {
	for _, text := range texts {
		m.lines = append(m.lines, strings.Split(text, "\n")...)
		m.lines = append(m.lines, "")
	}
	if over := len(m.lines) - maxLogLines; over > 0 {
		m.lines = m.lines[over:]
	}
}

func (m Model) prompt() string {
	if m.speaker == "" {
		return "> "
	}
	return m.renderer.Name(m.speaker) + "> "
}

// statusLine summarizes the channel's session for the header.
func (m Model) statusLine() string {
	snap, err := m.orch.Session(m.channel)
	if err != nil {
		return "No debate. /create opens one."
	}
	switch snap.Phase {
	case debate.PhaseRecruiting:
		status := fmt.Sprintf("Recruiting, %d joined", len(snap.Participants))
		if deadline, ok := m.orch.Deadline(m.channel); ok {
			status += ", drawing in " + render.Countdown(time.Until(deadline))
		}
		return status
	case debate.PhaseActive:
		return fmt.Sprintf("Debating %q, waiting for %s", snap.Topic, m.renderer.Name(snap.Debaters[snap.Turn%2]))
	default:
		return "Debate ended: " + snap.Outcome.Describe()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(render.Title.Render("Debate arena"))
	b.WriteString(render.Muted.Render(" · " + m.channel + " · " + m.statusLine()))
	b.WriteString("\n\n")

	visible := max(m.height-6, 1)
	lines := m.lines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	for _, line := range lines {
		b.WriteString(render.Truncate(line, m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.prompt())
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	if m.errorMsg != "" {
		b.WriteString(render.Danger.Render(m.errorMsg))
	} else {
		b.WriteString(render.Muted.Render("enter to send · /help for commands · ctrl+c to quit"))
	}
	return b.String()
}
