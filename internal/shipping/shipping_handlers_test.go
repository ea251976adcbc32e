package shipping

import (
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
	"shipdesk/internal/location"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/internal/testutils"
)

type handlerFixture struct {
	router  *mux.Router
	fake    *testutils.FakeCarrier
	session *session.Session
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	fake := testutils.NewFakeCarrier(t)
	fake.SetToken("tok")

	sessions := session.NewManager(carrier.NewClient(fake.URL, 5*time.Second),
		location.NewCache(location.CacheOptions{}), location.PolicyFromConfig(config.DefaultLocationPolicy()))
	s := sessions.Create(&carrier.LoginResponse{Token: "tok", User: carrier.Profile{Username: "ada"}})

	h := NewShippingHandlers(newTestService(t, fixedDefaults{account: "706065602", units: carrier.Metric}))
	router := mux.NewRouter()
	router.HandleFunc("/rates", h.Rates).Methods(http.MethodPost)
	router.HandleFunc("/contacts", h.Contacts).Methods(http.MethodGet)
	router.HandleFunc("/contacts/{id}", h.DeleteContact).Methods(http.MethodDelete)
	router.HandleFunc("/history", h.History).Methods(http.MethodGet)

	return &handlerFixture{router: router, fake: fake, session: s}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	ctx := session.NewContext(req.Context(), f.session)
	req = req.WithContext(respond.WithExpirer(ctx, f.session))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestShippingHandlers_Rates(t *testing.T) {
	f := newHandlerFixture(t)
	f.fake.JSON(http.MethodPost, "/rates", http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    carrier.RateQuote{Products: []carrier.Product{{Code: "P", TotalPrice: 42}}},
	})

	body := `{"origin":{"countryCode":"AE"},"destination":{"countryCode":"US"},` +
		`"packages":[{"weight":1}],"plannedShippingDate":"2026-10-20"}`
	rec := f.do(http.MethodPost, "/rates", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote carrier.RateQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Len(t, quote.Products, 1)
	assert.Equal(t, "Bearer tok", f.fake.LastRequest("/rates").Header.Get("Authorization"))

	rec = f.do(http.MethodPost, "/rates", `{"packages":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, f.fake.Hits(http.MethodPost, "/rates"))

	rec = f.do(http.MethodPost, "/rates", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShippingHandlers_CarrierErrors(t *testing.T) {
	f := newHandlerFixture(t)
	f.fake.JSON(http.MethodGet, "/contacts", http.StatusInternalServerError, map[string]string{"error": "maintenance"})

	rec := f.do(http.MethodGet, "/contacts", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	f.fake.SetToken("rotated")
	rec = f.do(http.MethodGet, "/contacts", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, f.session.Expired(), "a rejected token expires the session")
}

func TestShippingHandlers_DeleteContactAndHistory(t *testing.T) {
	f := newHandlerFixture(t)
	f.fake.Handle(http.MethodDelete, "/contacts/c-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.fake.JSON(http.MethodGet, "/history", http.StatusOK, []carrier.HistoryEntry{{ID: "h-1", Type: "shipment"}})

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/contacts/c-1", "").Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/history?limit=x", "").Code)
	rec := f.do(http.MethodGet, "/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", f.fake.LastRequest("/history").URL.Query().Get("limit"))
}
