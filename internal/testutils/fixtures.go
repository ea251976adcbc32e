package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeCarrier is an httptest stand-in for the carrier REST API. Routes are keyed by
// "METHOD /path"; unknown routes answer 404.
type FakeCarrier struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	routes   map[string]http.HandlerFunc
	hits     map[string]int
	requests []*http.Request
}

func NewFakeCarrier(t *testing.T) *FakeCarrier {
	f := &FakeCarrier{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *FakeCarrier) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.hits[route]++
	f.requests = append(f.requests, r.Clone(r.Context()))
	handler, ok := f.routes[route]
	token := f.token
	f.mu.Unlock()

	if token != "" && r.URL.Path != "/auth/login" &&
		r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// SetToken makes token the only bearer token accepted outside /auth/login.
func (f *FakeCarrier) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *FakeCarrier) Handle(method, path string, handler http.HandlerFunc) {
	f.mu.Lock()
	f.routes[method+" "+path] = handler
	f.mu.Unlock()
}

// JSON registers a route answering status with body encoded as JSON.
func (f *FakeCarrier) JSON(method, path string, status int, body interface{}) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Hits returns how many times "METHOD /path" was called.
func (f *FakeCarrier) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// LastRequest returns the most recent request whose path starts with prefix.
func (f *FakeCarrier) LastRequest(prefix string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if strings.HasPrefix(f.requests[i].URL.Path, prefix) {
			return f.requests[i]
		}
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
