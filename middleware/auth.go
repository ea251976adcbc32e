package middleware

import (
	"net/http"

	"shipdesk/internal/auth"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/models"
)

type Middleware struct {
	Auth   *auth.AuthHandlers
	Events *eventlog.EventLogService
}

func NewMiddleware(authHandlers *auth.AuthHandlers, events *eventlog.EventLogService) *Middleware {
	return &Middleware{Auth: authHandlers, Events: events}
}

// AuthMiddleware resolves the operator session and puts it into the request context.
// A session the carrier rejected while serving the request is destroyed afterwards.
func (m *Middleware) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := m.Auth.Resolve(r)
		if !ok {
			respond.Unauthorized(w, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))

		if s.Expired() {
			if _, destroyed := m.Auth.Sessions.Destroy(s.ID); destroyed {
				m.Events.Record(s.Username, models.SessionExpired, "")
			}
		}
	})
}
