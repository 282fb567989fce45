package gateway

import (
	"encoding/json"
	"time"

	"github.com/Iron-Ham/arena/internal/debate"
)

// Inbound actions a client may send.
const (
	ActionCreate  = "create"
	ActionJoin    = "join"
	ActionStart   = "start"
	ActionMessage = "message"
	ActionStop    = "stop"
	ActionStatus  = "status"
	ActionTopics  = "topics"
	ActionHelp    = "help"
)

// Request is one inbound client frame.
//
//	{"action": "message", "content": "First, ..."}
//	{"action": "create", "message_limit": 3, "max_chars": 300}
//
// The limit fields only apply to create; omitted ones use the configured
// defaults.
type Request struct {
	Action         string `json:"action"`
	Content        string `json:"content,omitempty"`
	RecruitMinutes int    `json:"recruit_minutes,omitempty"`
	MessageLimit   int    `json:"message_limit,omitempty"`
	MaxChars       int    `json:"max_chars,omitempty"`
}

// limits returns the session limits requested by a create frame, or nil
// when the frame asks for the defaults.
func (r Request) limits() *debate.Config {
	cfg := debate.Config{
		RecruitTimeMinutes:    r.RecruitMinutes,
		MessageLimitPerPerson: r.MessageLimit,
		MaxCharsPerMessage:    r.MaxChars,
	}
	if cfg == (debate.Config{}) {
		return nil
	}
	return &cfg
}

// Outbound frame types.
const (
	// FrameWelcome is sent once after the upgrade.
	FrameWelcome = "welcome"
	// FrameNotice carries a rendered session event to the whole channel.
	FrameNotice = "notice"
	// FrameChat echoes a chat message to the whole channel.
	FrameChat = "chat"
	// FrameInfo answers a status, topics or help request.
	FrameInfo = "info"
	// FrameError reports a failed action to its sender only.
	FrameError = "error"
)

// Frame is one outbound server frame.
type Frame struct {
	Type       string    `json:"type"`
	Event      string    `json:"event,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	Connection string    `json:"connection,omitempty"`
	User       string    `json:"user,omitempty"`
	Name       string    `json:"name,omitempty"`
	Privileged bool      `json:"privileged,omitempty"`
	Text       string    `json:"text,omitempty"`
	At         time.Time `json:"at"`
}

func encode(f Frame) []byte {
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}
	data, _ := json.Marshal(f)
	return data
}
