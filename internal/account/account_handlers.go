package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"shipdesk/internal/eventlog"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/models"
)

type AccountHandlers struct {
	Service *AccountService
	Events  *eventlog.EventLogService
}

func NewAccountHandlers(service *AccountService, events *eventlog.EventLogService) *AccountHandlers {
	return &AccountHandlers{Service: service, Events: events}
}

type addRequest struct {
	Number string `json:"number"`
	Label  string `json:"label"`
}

func (h *AccountHandlers) List(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	accounts, err := h.Service.FindAll(r.Context(), s.Username)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, accounts)
}

func (h *AccountHandlers) Add(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	account, err := h.Service.Add(r.Context(), s.Username, req.Number, req.Label)
	switch {
	case errors.Is(err, ErrInvalidNumber):
		respond.Validation(w, map[string]string{"number": err.Error()})
		return
	case errors.Is(err, ErrDuplicate):
		respond.Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Events.Record(s.Username, models.AccountAdded, account.Number)
	respond.JSON(w, http.StatusCreated, account)
}

func (h *AccountHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	number := mux.Vars(r)["number"]
	err := h.Service.Remove(r.Context(), s.Username, number)
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Events.Record(s.Username, models.AccountRemoved, number)
	w.WriteHeader(http.StatusNoContent)
}
