package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/arena/internal/arena"
	"github.com/Iron-Ham/arena/internal/config"
	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/event"
	"github.com/Iron-Ham/arena/internal/logging"
	"github.com/Iron-Ham/arena/internal/render"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

// Server exposes the orchestrator over HTTP: one websocket per user and
// channel for chat, plus read-only JSON endpoints for monitoring.
type Server struct {
	orch       *arena.Orchestrator
	hub        *Hub
	logger     *logging.Logger
	adminToken string
	origins    []string

	router   *mux.Router
	handler  http.Handler
	upgrader websocket.Upgrader
	http     *http.Server

	conns sync.WaitGroup
}

// SessionSummary is the JSON view of a live session.
type SessionSummary struct {
	ChannelID    string    `json:"channel_id"`
	SessionID    string    `json:"session_id"`
	Phase        string    `json:"phase"`
	Participants int       `json:"participants"`
	Debaters     []string  `json:"debaters,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	Turn         int       `json:"turn"`
	Entries      int       `json:"entries"`
	CreatedAt    time.Time `json:"created_at"`
	Deadline     time.Time `json:"deadline,omitzero"`
	Connections  int       `json:"connections"`
}

// NewServer creates a Server for orch. Events published on bus are relayed
// to the sockets of the channel they belong to.
func NewServer(cfg config.ServerConfig, orch *arena.Orchestrator, bus *event.Bus, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		orch:       orch,
		hub:        NewHub(bus, logger),
		logger:     logger.WithComponent("gateway"),
		adminToken: cfg.AdminToken,
		origins:    slices.Clone(cfg.AllowedOrigins),
		router:     mux.NewRouter(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	s.handler = c.Handler(s.router)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/channels", s.handleSessions).Methods(http.MethodGet)
	// Channel IDs may contain "/", so the websocket route goes first.
	s.router.HandleFunc("/channels/{channel:.+}/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router.HandleFunc("/channels/{channel:.+}", s.handleSession).Methods(http.MethodGet)
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown closes every socket, stops accepting requests, and waits for
// the connection handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gateway shutting down", "connections", s.hub.Connections())
	s.hub.Close()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------
// HTTP handlers
// -----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sessions":    len(s.orch.Sessions()),
		"connections": s.hub.Connections(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	snaps := s.orch.Sessions()
	out := make([]SessionSummary, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, s.summarize(snap))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orch.Session(mux.Vars(r)["channel"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": errors.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(snap))
}

func (s *Server) summarize(snap debate.Snapshot) SessionSummary {
	sum := SessionSummary{
		ChannelID:    snap.ChannelID,
		SessionID:    snap.ID,
		Phase:        string(snap.Phase),
		Participants: len(snap.Participants),
		Debaters:     snap.Debaters,
		Topic:        snap.Topic,
		Turn:         snap.Turn,
		Entries:      len(snap.Transcript),
		CreatedAt:    snap.CreatedAt,
		Connections:  s.hub.Members(snap.ChannelID),
	}
	if deadline, ok := s.orch.Deadline(snap.ChannelID); ok {
		sum.Deadline = deadline
	}
	return sum
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channel"]
	q := r.URL.Query()

	userID := strings.TrimSpace(q.Get("user"))
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = userID
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "channel_id", channelID, "error", err.Error())
		return
	}

	conn := NewConnection(channelID, Identity{
		UserID:     userID,
		Name:       name,
		Privileged: s.isAdmin(r),
	}, ws)

	s.conns.Add(1)
	defer s.conns.Done()

	s.hub.Attach(conn)
	defer s.hub.Detach(conn)

	_ = conn.Send(encode(Frame{
		Type:       FrameWelcome,
		Channel:    channelID,
		Connection: conn.ID,
		User:       userID,
		Name:       name,
		Privileged: conn.Privileged,
		Text:       render.Help(""),
	}))

	s.readLoop(conn)
}

// readLoop reads client frames until the socket fails or is closed.
func (s *Server) readLoop(conn *Connection) {
	defer conn.Close(websocket.CloseNormalClosure, "")

	conn.ws.SetReadLimit(maxFrameBytes)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := s.logger.WithChannel(conn.ChannelID)
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, CloseReplaced) {
				log.Debug("connection read error", "connection", conn.ID, "error", err.Error())
			}
			return
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(conn, FrameError, "malformed frame: expected JSON with an \"action\" field")
			continue
		}
		s.dispatch(conn, req)
	}
}

// dispatch routes one client request to the orchestrator.
func (s *Server) dispatch(conn *Connection, req Request) {
	requester := arena.Requester{ID: conn.UserID, Name: conn.Name, Privileged: conn.Privileged}
	channelID := conn.ChannelID

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionCreate:
		if _, err := s.orch.CreateSession(requester, channelID, req.limits()); err != nil {
			s.fail(conn, err)
		}

	case ActionJoin:
		if _, err := s.orch.Join(channelID, conn.UserID); err != nil {
			s.fail(conn, err)
		}

	case ActionStart:
		if err := s.orch.CloseRecruitment(requester, channelID); err != nil {
			s.fail(conn, err)
		}

	case ActionMessage:
		s.hub.Broadcast(channelID, encode(Frame{
			Type:    FrameChat,
			Channel: channelID,
			User:    conn.UserID,
			Name:    conn.Name,
			Text:    render.Sanitize(req.Content),
		}), "")
		s.orch.HandleMessage(channelID, debate.Message{
			AuthorID:   conn.UserID,
			AuthorName: conn.Name,
			Content:    req.Content,
			Timestamp:  time.Now(),
		})

	case ActionStop:
		if err := s.orch.Stop(requester, channelID); err != nil {
			s.fail(conn, err)
		}

	case ActionStatus:
		snap, err := s.orch.Session(channelID)
		if err != nil {
			s.fail(conn, err)
			return
		}
		deadline, _ := s.orch.Deadline(channelID)
		s.reply(conn, FrameInfo, s.hub.renderer.Status(snap, deadline))

	case ActionTopics:
		s.reply(conn, FrameInfo, render.Topics(s.orch.Catalog().Topics))

	case ActionHelp:
		s.reply(conn, FrameInfo, render.Help(""))

	default:
		s.reply(conn, FrameError, fmt.Sprintf("unknown action %q", req.Action))
	}
}

// fail reports err to the requesting socket only.
func (s *Server) fail(conn *Connection, err error) {
	log := s.logger.WithChannel(conn.ChannelID)
	if errors.IsUserFacing(err) {
		log.Debug("action refused", "user", conn.UserID, "error", err.Error())
	} else {
		log.Error("action failed", "user", conn.UserID, "error", err.Error())
	}
	s.reply(conn, FrameError, errors.UserMessage(err))
}

func (s *Server) reply(conn *Connection, frameType, text string) {
	_ = conn.Send(encode(Frame{Type: frameType, Channel: conn.ChannelID, Text: text}))
}

// isAdmin reports whether the request presents the configured admin token,
// either as a bearer token or a "token" query parameter. No token is
// configured means nobody is privileged.
func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	token := r.URL.Query().Get("token")
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		token = bearer
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
