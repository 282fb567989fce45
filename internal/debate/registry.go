package debate

import (
	"slices"
	"sync"

	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/Iron-Ham/arena/internal/moderation"
)

// Registry maps channel identities to their single active session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new recruiting session for channelID. If the channel
// already hosts a session it returns ErrSessionExists and changes nothing;
// of two concurrent creates for one channel exactly one succeeds.
func (r *Registry) Create(channelID string, cfg Config, filter *moderation.Filter) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewSessionError("create", channelID, err)
	}

	s := NewSession(channelID, cfg, filter)
	if err := r.Add(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Add registers a session built with NewSession. It fails with
// ErrSessionExists exactly as Create does.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ChannelID()]; ok {
		return errors.NewSessionError("create", s.ChannelID(), errors.ErrSessionExists)
	}
	r.sessions[s.ChannelID()] = s
	return nil
}

// Get returns the session registered for channelID.
func (r *Registry) Get(channelID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[channelID]
	if !ok {
		return nil, errors.NewSessionError("get", channelID, errors.ErrSessionNotFound)
	}
	return s, nil
}

// Remove deletes the entry for channelID, but only if it still points at
// sess, so a late cleanup cannot evict a newer session. It reports whether
// an entry was removed.
func (r *Registry) Remove(channelID string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[channelID]; ok && cur == sess {
		delete(r.sessions, channelID)
		return true
	}
	return false
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Channels returns the channels with a registered session, sorted.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
