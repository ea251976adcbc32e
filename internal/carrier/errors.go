package carrier

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the carrier rejects the bearer token (HTTP 401).
	ErrUnauthorized = errors.New("carrier session expired")
	// ErrConnection wraps transport failures; the operator has to repeat the action.
	ErrConnection = errors.New("connection error")
	// ErrMalformedResponse is returned when a body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed carrier response")
)

// APIError is a non-2xx answer other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("carrier API error: status=%d", e.Status)
	}
	return fmt.Sprintf("carrier API error: status=%d: %s", e.Status, e.Message)
}

// Message returns the text an operator should see for err.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConnection):
		return ErrConnection.Error()
	case errors.Is(err, ErrUnauthorized):
		return ErrUnauthorized.Error()
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return err.Error()
	}
}
