package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type TestServer struct {
	*httptest.Server
	t *testing.T
	// Token is sent as a bearer token when set
	Token string
}

func NewTestServer(t *testing.T, handler http.Handler) *TestServer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &TestServer{
		Server: server,
		t:      t,
	}
}

func (ts *TestServer) do(method, path string, body interface{}) *http.Response {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(ts.t, err)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	return resp
}

func (ts *TestServer) GET(path string) *http.Response {
	return ts.do(http.MethodGet, path, nil)
}

func (ts *TestServer) POST(path string, body interface{}) *http.Response {
	return ts.do(http.MethodPost, path, body)
}

func (ts *TestServer) PUT(path string, body interface{}) *http.Response {
	return ts.do(http.MethodPut, path, body)
}

func (ts *TestServer) DELETE(path string) *http.Response {
	return ts.do(http.MethodDelete, path, nil)
}

func AssertJSONResponse(t *testing.T, resp *http.Response, expectedStatus int, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)

	if target != nil {
		err := json.NewDecoder(resp.Body).Decode(target)
		require.NoError(t, err)
	}
}

func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)

	var errorResp map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	require.NoError(t, err)

	if expectedMessage != "" {
		require.Contains(t, errorResp["error"], expectedMessage)
	}
}
