package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/internal/auth"
	"shipdesk/internal/carrier"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/internal/testutils"
	"shipdesk/models"
)

type fixture struct {
	middleware *Middleware
	sessions   *session.Manager
	events     *eventlog.EventLogService
	token      string
	session    *session.Session
}

func newFixture(t *testing.T) *fixture {
	cfg := testutils.GetTestConfig("http://127.0.0.1:1")
	base := carrier.NewClient(cfg.CarrierAPIURL, time.Second)
	sessions := session.NewManager(base, location.NewCache(location.CacheOptions{}),
		location.PolicyFromConfig(cfg.Location))
	factory := testutils.SetupTestRepositoryFactory(t)
	events := eventlog.NewEventLogService(factory.NewEventLogRepository(), testutils.SetupTestDBManager(t))
	authHandlers := auth.NewAuthHandlers(cfg, base, sessions, auth.NewCookieStore(cfg.SessionSecret), events)

	s := sessions.Create(&carrier.LoginResponse{Token: "tok", User: carrier.Profile{Username: "ada"}})
	token, err := auth.GenerateJWT(cfg.JwtKey, s.Username, s.ID)
	require.NoError(t, err)

	return &fixture{
		middleware: NewMiddleware(authHandlers, events),
		sessions:   sessions,
		events:     events,
		token:      token,
		session:    s,
	}
}

func (f *fixture) request(token string, handler http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/rates", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.middleware.AuthMiddleware(handler)(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	t.Run("rejects anonymous requests", func(t *testing.T) {
		called := false
		rec := f.request("", func(w http.ResponseWriter, r *http.Request) { called = true })
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), respond.LoginPath)
		assert.False(t, called)
	})

	t.Run("puts the session into the context", func(t *testing.T) {
		var got *session.Session
		rec := f.request(f.token, func(w http.ResponseWriter, r *http.Request) {
			got = session.FromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Same(t, f.session, got)
	})

	t.Run("destroys the session the carrier rejected", func(t *testing.T) {
		rec := f.request(f.token, func(w http.ResponseWriter, r *http.Request) {
			respond.CarrierError(w, r, carrier.ErrUnauthorized)
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, f.sessions.Len())

		logs, err := f.events.GetAllByUsername(context.Background(), "ada", 5)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.SessionExpired, logs[0].Type)

		rec = f.request(f.token, func(w http.ResponseWriter, r *http.Request) {})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSetupCORS(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	t.Run("wildcard", func(t *testing.T) {
		h := SetupCORS([]string{"*"})(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/rates", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		assert.False(t, called)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rates", nil))
		assert.True(t, called)
	})

	t.Run("allowlist", func(t *testing.T) {
		h := SetupCORS([]string{"https://console.example.com"})(next)

		req := httptest.NewRequest(http.MethodGet, "/api/rates", nil)
		req.Header.Set("Origin", "https://console.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestLoggingMiddleware_PassesStatusThrough(t *testing.T) {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.HandleFunc("/api/contacts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/contacts/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _ = rec.Write([]byte("ok"))
	assert.Equal(t, http.StatusOK, rec.status)
}
