package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"shipdesk/internal/carrier"
	"shipdesk/internal/location"
	"shipdesk/internal/respond"
)

// Session is one logged-in operator. It owns the carrier token and the per-form location
// pickers; all of it is discarded together on logout or expiry.
type Session struct {
	ID           string
	Username     string
	Profile      carrier.Profile
	CarrierToken string
	CreatedAt    time.Time

	// Carrier attaches CarrierToken to every request
	Carrier *carrier.Client
	// Locations shares the process-wide cache but fetches with this session's token
	Locations *location.Client

	expired atomic.Bool

	mu         sync.Mutex
	lastSeen   time.Time
	pickers    map[string]*location.Controller
	onResolved func(*Session, string, location.Selection)
}

// Expire marks the session as rejected by the carrier. The owning Manager removes it.
func (s *Session) Expire() {
	s.expired.Store(true)
}

func (s *Session) Expired() bool {
	return s.expired.Load()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Picker returns the named picker, creating it on first use.
func (s *Session) Picker(name string) (*location.Controller, error) {
	if !location.ValidPickerName(name) {
		return nil, location.ErrInvalidPicker
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.pickers[name]; ok {
		return c, nil
	}
	if len(s.pickers) >= location.MaxPickers {
		return nil, location.ErrTooManyPickers
	}

	onResolved := s.onResolved
	c := location.NewController(s.Locations, func(sel location.Selection) {
		if onResolved != nil {
			onResolved(s, name, sel)
		}
	})
	s.pickers[name] = c
	return c, nil
}

// DropPicker discards a picker and cancels its outstanding fetches.
func (s *Session) DropPicker(name string) bool {
	s.mu.Lock()
	c, ok := s.pickers[name]
	delete(s.pickers, name)
	s.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

func (s *Session) LocationClient() *location.Client {
	return s.Locations
}

func (s *Session) PickerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.pickers))
	for name := range s.pickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) closePickers() {
	s.mu.Lock()
	pickers := s.pickers
	s.pickers = make(map[string]*location.Controller)
	s.mu.Unlock()

	for _, c := range pickers {
		c.Close()
	}
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	ctx = respond.WithExpirer(ctx, s)
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
