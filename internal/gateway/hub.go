package gateway

import (
	"sync"

	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/Iron-Ham/arena/internal/render"
	"github.com/gorilla/websocket"
)

// room is the set of sockets attached to one chat channel, plus the bus
// subscription relaying that channel's events to them.
type room struct {
	conns  map[string]*Connection // connection ID -> connection
	byUser map[string]string      // user ID -> connection ID
	sub    string
}

// Hub tracks websocket connections per channel. It keeps one active socket
// per user and channel, and fans session events out to every socket in the
// event's channel.
type Hub struct {
	bus      *event.Bus
	renderer *render.Renderer
	logger   *logging.Logger

	mu    sync.RWMutex
	rooms map[string]*room
	names map[string]string
}

// NewHub creates a Hub relaying events from bus.
func NewHub(bus *event.Bus, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger()
	}
	h := &Hub{
		bus:    bus,
		logger: logger.WithComponent("hub"),
		rooms:  make(map[string]*room),
		names:  make(map[string]string),
	}
	h.renderer = render.New(render.Options{Plain: true, Names: h.displayName})
	return h
}

// Attach registers and starts conn. A previous socket of the same user in
// the same channel is closed with CloseReplaced. The first socket in a
// channel subscribes the hub to that channel's events.
func (h *Hub) Attach(conn *Connection) {
	var previous *Connection

	h.mu.Lock()
	r := h.rooms[conn.ChannelID]
	if r == nil {
		r = &room{
			conns:  make(map[string]*Connection),
			byUser: make(map[string]string),
		}
		r.sub = h.bus.SubscribeChannel(conn.ChannelID, h.relay)
		h.rooms[conn.ChannelID] = r
	}
	if existingID, ok := r.byUser[conn.UserID]; ok {
		previous = r.conns[existingID]
		delete(r.conns, existingID)
	}
	r.conns[conn.ID] = conn
	r.byUser[conn.UserID] = conn.ID
	if conn.Name != "" {
		h.names[conn.UserID] = conn.Name
	}
	h.mu.Unlock()

	conn.Start()
	h.logger.WithChannel(conn.ChannelID).Debug("connection attached",
		"connection", conn.ID, "user", conn.UserID, "privileged", conn.Privileged)

	if previous != nil {
		previous.Close(CloseReplaced, "session replaced")
	}
}

// Detach removes conn if it is still tracked. The last socket leaving a
// channel drops the hub's subscription to it.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[conn.ChannelID]
	if r == nil {
		return
	}
	if _, ok := r.conns[conn.ID]; !ok {
		return
	}
	delete(r.conns, conn.ID)
	if r.byUser[conn.UserID] == conn.ID {
		delete(r.byUser, conn.UserID)
	}
	if len(r.conns) == 0 {
		h.bus.Unsubscribe(r.sub)
		delete(h.rooms, conn.ChannelID)
	}
}

// Broadcast writes payload to every socket in a channel, skipping
// excludeUserID when it is non-empty. It returns the number of sockets the
// payload was queued for.
func (h *Hub) Broadcast(channelID string, payload []byte, excludeUserID string) int {
	h.mu.RLock()
	r := h.rooms[channelID]
	if r == nil {
		h.mu.RUnlock()
		return 0
	}
	targets := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		if excludeUserID != "" && conn.UserID == excludeUserID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Members returns the number of sockets attached to a channel.
func (h *Hub) Members(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r := h.rooms[channelID]; r != nil {
		return len(r.conns)
	}
	return 0
}

// Connections returns the number of attached sockets across all channels.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, r := range h.rooms {
		n += len(r.conns)
	}
	return n
}

// Close disconnects every socket and drops all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*Connection
	for _, r := range h.rooms {
		h.bus.Unsubscribe(r.sub)
		for _, conn := range r.conns {
			conns = append(conns, conn)
		}
	}
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

// relay renders a session event and broadcasts it to the event's channel.
func (h *Hub) relay(e event.Event) {
	text := h.renderer.Event(e)
	if text == "" {
		return
	}
	n := h.Broadcast(e.Channel(), encode(Frame{
		Type:    FrameNotice,
		Event:   e.EventType(),
		Channel: e.Channel(),
		Text:    text,
		At:      e.Timestamp(),
	}), "")
	h.logger.WithChannel(e.Channel()).Debug("event relayed", "event", e.EventType(), "delivered", n)
}

func (h *Hub) displayName(id string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if name, ok := h.names[id]; ok {
		return name
	}
	return id
}
