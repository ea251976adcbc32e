package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shipdesk/internal/account"
	"shipdesk/internal/auth"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/respond"
	"shipdesk/internal/settings"
	"shipdesk/internal/shipping"
	"shipdesk/middleware"
)

// Handlers groups every feature's HTTP handlers.
type Handlers struct {
	Auth       *auth.AuthHandlers
	Middleware *middleware.Middleware
	Locations  *location.LocationHandlers
	Accounts   *account.AccountHandlers
	Settings   *settings.SettingsHandlers
	Shipping   *shipping.ShippingHandlers
	EventLogs  *eventlog.EventLogHandlers
	// AllowedOrigins feeds the CORS middleware; empty allows any origin
	AllowedOrigins []string
}

func (h *Handlers) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SetupCORS(h.AllowedOrigins))
	r.Use(middleware.LoggingMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	secured := h.Middleware.AuthMiddleware

	// Authentication
	api.HandleFunc("/auth/login", h.Auth.LoginHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/check", h.Auth.CheckAuthHandler).Methods("GET")
	api.HandleFunc("/auth/logout", h.Auth.LogoutHandler).Methods("POST")

	// Location lookups
	api.HandleFunc("/locations/countries", secured(h.Locations.Countries)).Methods("GET")
	api.HandleFunc("/locations/countries/{country:[A-Za-z]{2}}/structure", secured(h.Locations.Structure)).Methods("GET")
	api.HandleFunc("/locations/countries/{country:[A-Za-z]{2}}/states", secured(h.Locations.States)).Methods("GET")
	api.HandleFunc("/locations/countries/{country:[A-Za-z]{2}}/cities", secured(h.Locations.Cities)).Methods("GET")
	api.HandleFunc("/locations/countries/{country:[A-Za-z]{2}}/service-areas", secured(h.Locations.ServiceAreas)).Methods("GET")
	api.HandleFunc("/locations/countries/{country:[A-Za-z]{2}}/postal-codes", secured(h.Locations.PostalCodes)).Methods("GET")

	// Location pickers
	api.HandleFunc("/location-pickers/{picker}", secured(h.Locations.GetPicker)).Methods("GET")
	api.HandleFunc("/location-pickers/{picker}", secured(h.Locations.DeletePicker)).Methods("DELETE")
	api.HandleFunc("/location-pickers/{picker}/cities", secured(h.Locations.SearchCities)).Methods("GET")
	api.HandleFunc("/location-pickers/{picker}/{level:country|state|city|service-area|postal-code}", secured(h.Locations.Select)).Methods("POST")

	// Location cache
	api.HandleFunc("/location-cache", secured(h.Locations.CacheStats)).Methods("GET")
	api.HandleFunc("/location-cache", secured(h.Locations.ClearCache)).Methods("DELETE")

	// Accounts and preferences
	api.HandleFunc("/accounts", secured(h.Accounts.List)).Methods("GET")
	api.HandleFunc("/accounts", secured(h.Accounts.Add)).Methods("POST")
	api.HandleFunc("/accounts/{number}", secured(h.Accounts.Remove)).Methods("DELETE")
	api.HandleFunc("/preferences", secured(h.Settings.Get)).Methods("GET")
	api.HandleFunc("/preferences", secured(h.Settings.Update)).Methods("PUT")

	// Shipping
	api.HandleFunc("/rates", secured(h.Shipping.Rates)).Methods("POST")
	api.HandleFunc("/rates/content-types", secured(h.Shipping.CompareContentTypes)).Methods("POST")
	api.HandleFunc("/shipments", secured(h.Shipping.CreateShipment)).Methods("POST")
	api.HandleFunc("/pickups", secured(h.Shipping.SchedulePickup)).Methods("POST")
	api.HandleFunc("/contacts", secured(h.Shipping.Contacts)).Methods("GET")
	api.HandleFunc("/contacts", secured(h.Shipping.CreateContact)).Methods("POST")
	api.HandleFunc("/contacts/{id}", secured(h.Shipping.DeleteContact)).Methods("DELETE")
	api.HandleFunc("/history", secured(h.Shipping.History)).Methods("GET")

	// Activity log
	api.HandleFunc("/event-logs", secured(h.EventLogs.FindLatest)).Methods("GET")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})

	return r
}
