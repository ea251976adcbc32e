package shipping

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shipdesk/internal/carrier"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/internal/validation"
)

type ShippingHandlers struct {
	Service *ShippingService
}

func NewShippingHandlers(service *ShippingService) *ShippingHandlers {
	return &ShippingHandlers{Service: service}
}

func (h *ShippingHandlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := session.FromContext(r.Context())
	if s == nil {
		respond.Unauthorized(w, "Unauthorized")
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fields validation.Errors
	if errors.As(err, &fields) {
		respond.Validation(w, fields)
		return
	}
	respond.CarrierError(w, r, err)
}

func (h *ShippingHandlers) Rates(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req carrier.RateRequest
	if !decode(w, r, &req) {
		return
	}
	quote, err := h.Service.Rates(r.Context(), s.Carrier, s.Username, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, quote)
}

func (h *ShippingHandlers) CompareContentTypes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req carrier.RateRequest
	if !decode(w, r, &req) {
		return
	}
	cmp, err := h.Service.CompareContentTypes(r.Context(), s.Carrier, s.Username, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, cmp)
}

func (h *ShippingHandlers) CreateShipment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req carrier.ShipmentRequest
	if !decode(w, r, &req) {
		return
	}
	shipment, err := h.Service.CreateShipment(r.Context(), s.Carrier, s.Username, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, shipment)
}

func (h *ShippingHandlers) SchedulePickup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req carrier.PickupRequest
	if !decode(w, r, &req) {
		return
	}
	pickup, err := h.Service.SchedulePickup(r.Context(), s.Carrier, s.Username, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, pickup)
}

func (h *ShippingHandlers) Contacts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	contacts, err := h.Service.Contacts(r.Context(), s.Carrier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, contacts)
}

func (h *ShippingHandlers) CreateContact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req carrier.Contact
	if !decode(w, r, &req) {
		return
	}
	created, err := h.Service.CreateContact(r.Context(), s.Carrier, s.Username, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

func (h *ShippingHandlers) DeleteContact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteContact(r.Context(), s.Carrier, s.Username, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShippingHandlers) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = parsed
	}
	entries, err := h.Service.History(r.Context(), s.Carrier, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}
