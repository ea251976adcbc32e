package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"shipdesk/internal/eventlog"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/models"
)

type SettingsHandlers struct {
	Service *SettingsService
	Events  *eventlog.EventLogService
}

func NewSettingsHandlers(service *SettingsService, events *eventlog.EventLogService) *SettingsHandlers {
	return &SettingsHandlers{Service: service, Events: events}
}

func (h *SettingsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	settings, err := h.Service.GetUserSettings(r.Context(), s.Username)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}

func (h *SettingsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	settings, err := h.Service.UpdateUserSettings(r.Context(), s.Username, updates)
	if errors.Is(err, ErrUnknownAccount) {
		respond.Validation(w, map[string]string{"selected_account": err.Error()})
		return
	}
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.Events.Record(s.Username, models.PreferencesUpdated, "")
	respond.JSON(w, http.StatusOK, settings)
}
