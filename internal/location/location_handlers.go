package location

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"

	"shipdesk/internal/carrier"
	"shipdesk/internal/respond"
)

// MaxPickers bounds the location pickers one session may hold.
const MaxPickers = 8

var (
	ErrInvalidPicker  = errors.New("picker name must be lowercase letters, digits or dashes")
	ErrTooManyPickers = errors.New("too many location pickers for this session")
)

var pickerName = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)

func ValidPickerName(name string) bool {
	return pickerName.MatchString(name)
}

// PickerHost owns the pickers of one operator session.
type PickerHost interface {
	Picker(name string) (*Controller, error)
	DropPicker(name string) bool
	LocationClient() *Client
}

type LocationHandlers struct {
	Cache *Cache
	// Host resolves the caller's session
	Host func(r *http.Request) (PickerHost, bool)
	// OnCacheCleared is told which part of the cache an operator dropped
	OnCacheCleared func(r *http.Request, scope string)
}

func NewLocationHandlers(cache *Cache, host func(r *http.Request) (PickerHost, bool)) *LocationHandlers {
	return &LocationHandlers{Cache: cache, Host: host}
}

type selectRequest struct {
	Value string `json:"value"`
}

func (h *LocationHandlers) client(w http.ResponseWriter, r *http.Request) (*Client, bool) {
	host, ok := h.Host(r)
	if !ok {
		respond.Unauthorized(w, "Unauthorized")
		return nil, false
	}
	return host.LocationClient(), true
}

// writeResult answers a direct lookup. Failures are still 200 with success=false, except
// an expired carrier session.
func writeResult[T any](w http.ResponseWriter, r *http.Request, res Result[T]) {
	if errors.Is(res.Err, carrier.ErrUnauthorized) {
		respond.CarrierError(w, r, res.Err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *LocationHandlers) Countries(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	writeResult(w, r, c.Countries(r.Context()))
}

func (h *LocationHandlers) Structure(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	writeResult(w, r, c.Structure(r.Context(), mux.Vars(r)["country"]))
}

func (h *LocationHandlers) States(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	writeResult(w, r, c.States(r.Context(), mux.Vars(r)["country"]))
}

func (h *LocationHandlers) Cities(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeResult(w, r, c.Cities(r.Context(), CityQuery{
		Country: mux.Vars(r)["country"],
		State:   q.Get("state"),
		Search:  q.Get("search"),
	}))
}

func (h *LocationHandlers) ServiceAreas(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeResult(w, r, c.ServiceAreas(r.Context(), ServiceAreaQuery{
		Country: mux.Vars(r)["country"],
		State:   q.Get("state"),
		City:    q.Get("city"),
	}))
}

func (h *LocationHandlers) PostalCodes(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeResult(w, r, c.PostalCodes(r.Context(), PostalCodeQuery{
		Country:     mux.Vars(r)["country"],
		State:       q.Get("state"),
		City:        q.Get("city"),
		ServiceArea: q.Get("serviceArea"),
		Search:      q.Get("search"),
	}))
}

func (h *LocationHandlers) picker(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	host, ok := h.Host(r)
	if !ok {
		respond.Unauthorized(w, "Unauthorized")
		return nil, false
	}
	c, err := host.Picker(mux.Vars(r)["picker"])
	switch {
	case errors.Is(err, ErrInvalidPicker):
		respond.Error(w, http.StatusBadRequest, err.Error())
		return nil, false
	case errors.Is(err, ErrTooManyPickers):
		respond.Error(w, http.StatusConflict, err.Error())
		return nil, false
	case err != nil:
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return c, true
}

// GetPicker renders a picker, loading the country list on first use.
func (h *LocationHandlers) GetPicker(w http.ResponseWriter, r *http.Request) {
	c, ok := h.picker(w, r)
	if !ok {
		return
	}
	view := c.Snapshot()
	if len(view.Countries.Options) == 0 && !view.Countries.Loading && view.Countries.Error == "" {
		if err := c.LoadCountries(r.Context()); err != nil {
			writeControllerError(w, r, err)
			return
		}
		view = c.Snapshot()
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *LocationHandlers) DeletePicker(w http.ResponseWriter, r *http.Request) {
	host, ok := h.Host(r)
	if !ok {
		respond.Unauthorized(w, "Unauthorized")
		return
	}
	if !host.DropPicker(mux.Vars(r)["picker"]) {
		respond.Error(w, http.StatusNotFound, "picker not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select applies {"value": ...} to the level named in the route.
func (h *LocationHandlers) Select(w http.ResponseWriter, r *http.Request) {
	c, ok := h.picker(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	var err error
	switch mux.Vars(r)["level"] {
	case "country":
		err = c.SelectCountry(r.Context(), req.Value)
	case "state":
		err = c.SelectState(r.Context(), req.Value)
	case "city":
		err = c.SelectCity(r.Context(), req.Value)
	case "service-area":
		err = c.SelectServiceArea(r.Context(), req.Value)
	case "postal-code":
		_, err = c.SelectPostalCode(req.Value)
	default:
		respond.Error(w, http.StatusNotFound, "unknown level")
		return
	}
	if err != nil {
		writeControllerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c.Snapshot())
}

func (h *LocationHandlers) SearchCities(w http.ResponseWriter, r *http.Request) {
	c, ok := h.picker(w, r)
	if !ok {
		return
	}
	if err := c.SearchCities(r.Context(), r.URL.Query().Get("search")); err != nil {
		writeControllerError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c.Snapshot())
}

func writeControllerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownOption):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrLevelUnavailable), errors.Is(err, ErrCountryRequired):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		respond.CarrierError(w, r, err)
	}
}

// CacheStats reports the number of stored entries per category.
func (h *LocationHandlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"entries":    h.Cache.Len(),
		"categories": h.Cache.Stats(),
	})
}

// ClearCache drops one entry (category and key), one category, or everything.
func (h *LocationHandlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, key := q.Get("category"), q.Get("key")

	scope := "all"
	switch {
	case name == "" && key != "":
		respond.Error(w, http.StatusBadRequest, "key requires a category")
		return
	case name == "":
		h.Cache.Clear()
	default:
		category, ok := ParseCategory(name)
		if !ok {
			respond.Error(w, http.StatusBadRequest, "unknown category")
			return
		}
		scope = name
		if key != "" {
			h.Cache.Delete(category, key)
			scope = name + ":" + key
		} else {
			h.Cache.ClearCategory(category)
		}
	}

	if h.OnCacheCleared != nil {
		h.OnCacheCleared(r, scope)
	}
	h.CacheStats(w, r)
}
