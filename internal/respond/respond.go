package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"shipdesk/internal/carrier"
	"shipdesk/internal/logger"
)

// LoginPath is where the browser is sent once the carrier session is gone.
const LoginPath = "/login"

// Expirer is the request's operator session as far as error mapping is concerned.
type Expirer interface {
	Expire()
}

type expirerKey struct{}

// WithExpirer attaches the session that CarrierError expires on a rejected token.
func WithExpirer(ctx context.Context, e Expirer) context.Context {
	return context.WithValue(ctx, expirerKey{}, e)
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger("http").Warnf("Failed to encode response: %v", err)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Validation answers 422 with one message per invalid field.
func Validation(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": fields,
	})
}

// Unauthorized answers 401 and points the browser at the login page.
func Unauthorized(w http.ResponseWriter, message string) {
	JSON(w, http.StatusUnauthorized, map[string]string{
		"error":    message,
		"redirect": LoginPath,
	})
}

// CarrierError maps a carrier failure to a response. A rejected token also marks the
// request's session as expired so the auth middleware logs the operator out.
func CarrierError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *carrier.APIError
	switch {
	case errors.Is(err, carrier.ErrUnauthorized):
		if e, ok := r.Context().Value(expirerKey{}).(Expirer); ok {
			e.Expire()
		}
		Unauthorized(w, carrier.Message(err))
	case errors.Is(err, carrier.ErrConnection):
		Error(w, http.StatusBadGateway, carrier.Message(err))
	case errors.As(err, &apiErr):
		Error(w, http.StatusBadGateway, carrier.Message(err))
	case errors.Is(err, carrier.ErrMalformedResponse):
		Error(w, http.StatusBadGateway, err.Error())
	case r.Context().Err() != nil:
		// client went away
		Error(w, http.StatusRequestTimeout, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
