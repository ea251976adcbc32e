package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shipdesk/internal/logger"
	"shipdesk/internal/metrics"
)

// Client talks to the remote carrier REST API. A Client built with WithToken attaches
// the operator's bearer token to every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an anonymous client (only Login works without a token).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport,
		},
	}
}

// bearerTransport injects the Authorization header into every outgoing request.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(clone)
}

// WithToken returns a client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	next := c.httpClient.Transport
	if bt, ok := next.(*bearerTransport); ok {
		next = bt.next
	}
	return &Client{
		baseURL: c.baseURL,
		httpClient: &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: &bearerTransport{token: token, next: next},
		},
	}
}

// Get performs a GET and returns the raw body of a 2xx answer.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	log := logger.GetLogger("carrier")

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe(method, path, "transport_error", start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warnf("%s %s failed: %v", method, path, err)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		observe(method, path, "transport_error", start)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	observe(method, path, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Infof("%s %s answered status=%d", method, path, resp.StatusCode)
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

func observe(method, path, outcome string, start time.Time) {
	metrics.CarrierRequestDuration.WithLabelValues(method, endpointLabel(path), outcome).
		Observe(time.Since(start).Seconds())
}

// endpointLabel keeps metric cardinality bounded by cutting path parameters.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		case body.Detail != "":
			return body.Detail
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	raw, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return DecodeData(raw, out)
}

// Login exchanges operator credentials for a carrier bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response without token", ErrMalformedResponse)
	}
	if resp.User.Username == "" {
		resp.User.Username = creds.Username
	}
	return &resp, nil
}

func (c *Client) Rates(ctx context.Context, req *RateRequest) (*RateQuote, error) {
	var quote RateQuote
	if err := c.call(ctx, http.MethodPost, "/rates", nil, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *Client) CompareContentTypes(ctx context.Context, req *RateRequest) (*ContentTypeComparison, error) {
	var cmp ContentTypeComparison
	if err := c.call(ctx, http.MethodPost, "/rates/content-types", nil, req, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *Client) CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error) {
	var shipment Shipment
	if err := c.call(ctx, http.MethodPost, "/shipments", nil, req, &shipment); err != nil {
		return nil, err
	}
	if shipment.TrackingNumber == "" {
		return nil, fmt.Errorf("%w: shipment without tracking number", ErrMalformedResponse)
	}
	return &shipment, nil
}

func (c *Client) SchedulePickup(ctx context.Context, req *PickupRequest) (*Pickup, error) {
	var pickup Pickup
	if err := c.call(ctx, http.MethodPost, "/pickups", nil, req, &pickup); err != nil {
		return nil, err
	}
	if pickup.ConfirmationNumber == "" {
		return nil, fmt.Errorf("%w: pickup without confirmation number", ErrMalformedResponse)
	}
	return &pickup, nil
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	contacts := []Contact{}
	if err := c.call(ctx, http.MethodGet, "/contacts", nil, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *Client) CreateContact(ctx context.Context, contact *Contact) (*Contact, error) {
	var created Contact
	if err := c.call(ctx, http.MethodPost, "/contacts", nil, contact, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("contact id is required")
	}
	return c.call(ctx, http.MethodDelete, "/contacts/"+url.PathEscape(id), nil, nil, nil)
}

// History returns the carrier-side activity history, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	entries := []HistoryEntry{}
	if err := c.call(ctx, http.MethodGet, "/history", query, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
