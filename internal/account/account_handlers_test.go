package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/session"
	"shipdesk/internal/testutils"
	"shipdesk/models"
)

type handlerFixture struct {
	router  *mux.Router
	events  *eventlog.EventLogService
	session *session.Session
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	factory := testutils.SetupTestRepositoryFactory(t)
	dbManager := testutils.SetupTestDBManager(t)
	events := eventlog.NewEventLogService(factory.NewEventLogRepository(), dbManager)
	h := NewAccountHandlers(NewAccountService(factory.NewAccountRepository(), dbManager), events)

	sessions := session.NewManager(carrier.NewClient("http://127.0.0.1:1", time.Second),
		location.NewCache(location.CacheOptions{}), location.PolicyFromConfig(config.DefaultLocationPolicy()))
	s := sessions.Create(&carrier.LoginResponse{Token: "tok", User: carrier.Profile{Username: "ada"}})

	router := mux.NewRouter()
	router.HandleFunc("/accounts", h.List).Methods(http.MethodGet)
	router.HandleFunc("/accounts", h.Add).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{number}", h.Remove).Methods(http.MethodDelete)

	return &handlerFixture{router: router, events: events, session: s}
}

func (f *handlerFixture) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authenticated {
		req = req.WithContext(session.NewContext(req.Context(), f.session))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAccountHandlers_RequireSession(t *testing.T) {
	f := newHandlerFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/accounts", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/accounts", `{"number":"706065602"}`, false).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/accounts/706065602", "", false).Code)
}

func TestAccountHandlers_AddListRemove(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/accounts", `{"number":"706065602","label":"Main"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var added models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "706065602", added.Number)
	assert.Equal(t, "ada", added.Username)

	rec = f.do(http.MethodPost, "/accounts", `{"number":"706065602"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/accounts", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Main", listed[0].Label)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/accounts/706065602", "", true).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/accounts/706065602", "", true).Code)

	logs, err := f.events.GetAllByUsername(context.Background(), "ada", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AccountRemoved, logs[0].Type)
	assert.Equal(t, models.AccountAdded, logs[1].Type)
	assert.Equal(t, "Account [706065602] added", logs[1].Description)
}

func TestAccountHandlers_AddValidation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/accounts", `{"number":"12345"}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrInvalidNumber.Error(), body.Fields["number"])

	rec = f.do(http.MethodPost, "/accounts", `{"number":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
