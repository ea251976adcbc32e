package carrier

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the normalized form of the carrier's loosely shaped responses. The API
// answers with a bare array, a bare object, or {success, data, error|message, ...}.
type Envelope struct {
	Success          bool
	Data             json.RawMessage
	Error            string
	RequiresFilters  bool
	AvailableFilters json.RawMessage
}

type wireEnvelope struct {
	Success          *bool           `json:"success"`
	Data             json.RawMessage `json:"data"`
	Error            string          `json:"error"`
	Message          string          `json:"message"`
	RequiresFilters  bool            `json:"requiresFilters"`
	AvailableFilters json.RawMessage `json:"availableFilters"`
}

// Unwrap normalizes a response body into an Envelope.
func Unwrap(raw []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Envelope{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '[':
		return Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
	case '{':
	default:
		return Envelope{}, fmt.Errorf("%w: unexpected body", ErrMalformedResponse)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	_, hasData := probe["data"]
	_, hasSuccess := probe["success"]
	_, hasFilters := probe["requiresFilters"]
	if !hasData && !hasSuccess && !hasFilters {
		return Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
	}

	var w wireEnvelope
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	env := Envelope{
		Success:          w.Success == nil || *w.Success,
		Data:             w.Data,
		Error:            w.Error,
		RequiresFilters:  w.RequiresFilters,
		AvailableFilters: w.AvailableFilters,
	}
	if env.Error == "" && !env.Success {
		env.Error = w.Message
	}
	return env, nil
}

// DecodeData unwraps raw and decodes the payload into out.
func DecodeData(raw []byte, out interface{}) error {
	env, err := Unwrap(raw)
	if err != nil {
		return err
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "request was not successful"
		}
		return &APIError{Status: 200, Message: env.Error}
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
