package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shipdesk/internal/carrier"
	"shipdesk/internal/location"
	"shipdesk/internal/logger"
	"shipdesk/internal/metrics"
)

// Manager is the single owner of session lifecycles.
type Manager struct {
	carrier *carrier.Client
	cache   *location.Cache
	policy  location.Policy
	now     func() time.Time
	log     *zap.SugaredLogger

	mu         sync.RWMutex
	sessions   map[string]*Session
	onResolved func(*Session, string, location.Selection)
}

// NewManager creates a manager. base is the anonymous carrier client that sessions
// derive their authenticated clients from.
func NewManager(base *carrier.Client, cache *location.Cache, policy location.Policy) *Manager {
	return &Manager{
		carrier:  base,
		cache:    cache,
		policy:   policy,
		now:      time.Now,
		log:      logger.GetLogger("session"),
		sessions: make(map[string]*Session),
	}
}

// OnLocationResolved registers a hook called whenever a picker completes a selection.
// Only sessions created afterwards see it.
func (m *Manager) OnLocationResolved(fn func(s *Session, picker string, sel location.Selection)) {
	m.mu.Lock()
	m.onResolved = fn
	m.mu.Unlock()
}

func (m *Manager) Cache() *location.Cache {
	return m.cache
}

// Create starts a session for a successful carrier login.
func (m *Manager) Create(resp *carrier.LoginResponse) *Session {
	now := m.now()
	authed := m.carrier.WithToken(resp.Token)

	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:           uuid.New().String(),
		Username:     resp.User.Username,
		Profile:      resp.User,
		CarrierToken: resp.Token,
		CreatedAt:    now,
		Carrier:      authed,
		Locations:    location.NewClient(m.cache, authed, m.policy),
		lastSeen:     now,
		pickers:      make(map[string]*location.Controller),
		onResolved:   m.onResolved,
	}
	m.sessions[s.ID] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.log.Infof("Session %s started for %s", s.ID, s.Username)
	return s
}

// Get returns a live session and records the access.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.Expired() {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// Destroy removes the session and cancels everything it was doing.
func (m *Manager) Destroy(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.closePickers()
	m.log.Infof("Session %s for %s ended", s.ID, s.Username)
	return s, true
}

// ExpireIdle destroys sessions not used for maxIdle and returns them.
func (m *Manager) ExpireIdle(maxIdle time.Duration) []*Session {
	cutoff := m.now().Add(-maxIdle)

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.Expired() || s.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	expired := make([]*Session, 0, len(idle))
	for _, id := range idle {
		if s, ok := m.Destroy(id); ok {
			expired = append(expired, s)
		}
	}
	return expired
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
