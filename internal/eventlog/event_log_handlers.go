package eventlog

import (
	"net/http"
	"strconv"

	"shipdesk/internal/respond"
	"shipdesk/internal/session"
)

type EventLogHandlers struct {
	Service *EventLogService
}

func NewEventLogHandlers(service *EventLogService) *EventLogHandlers {
	return &EventLogHandlers{Service: service}
}

// FindLatest lists the current operator's activity, newest first
func (h *EventLogHandlers) FindLatest(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}

	eventLogs, err := h.Service.GetAllByUsername(r.Context(), s.Username, limit)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, eventLogs)
}
