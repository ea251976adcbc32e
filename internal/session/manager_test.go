package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/location"
	"shipdesk/internal/respond"
	"shipdesk/internal/testutils"
)

func newTestManager(t *testing.T) (*Manager, *testutils.FakeCarrier) {
	fake := testutils.NewFakeCarrier(t)
	base := carrier.NewClient(fake.URL, 5*time.Second)
	m := NewManager(base, location.NewCache(location.CacheOptions{}),
		location.PolicyFromConfig(config.DefaultLocationPolicy()))
	return m, fake
}

func login(username, token string) *carrier.LoginResponse {
	return &carrier.LoginResponse{Token: token, User: carrier.Profile{Username: username}}
}

func TestManager_Lifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	s := m.Create(login("ada", "tok"))
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "ada", s.Username)
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	destroyed, ok := m.Destroy(s.ID)
	require.True(t, ok)
	assert.Same(t, s, destroyed)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
	_, ok = m.Destroy(s.ID)
	assert.False(t, ok)
}

func TestManager_SessionsUseTheirOwnToken(t *testing.T) {
	m, fake := newTestManager(t)
	fake.SetToken("tok-b")
	fake.JSON(http.MethodGet, "/locations/countries", http.StatusOK, []string{"US"})

	a := m.Create(login("ada", "tok-a"))
	b := m.Create(login("bob", "tok-b"))

	res := a.Locations.Countries(context.Background())
	assert.ErrorIs(t, res.Err, carrier.ErrUnauthorized)

	res = b.Locations.Countries(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, "Bearer tok-b", fake.LastRequest("/locations/countries").Header.Get("Authorization"))

	res = a.Locations.Countries(context.Background())
	assert.True(t, res.Cached, "the location cache is shared between sessions")
}

func TestManager_ExpiredSessionsAreNotReturned(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create(login("ada", "tok"))

	s.Expire()
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
	assert.Len(t, m.ExpireIdle(time.Hour), 1)
	assert.Zero(t, m.Len())
}

func TestManager_ExpireIdle(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle := m.Create(login("ada", "tok-a"))
	active := m.Create(login("bob", "tok-b"))

	now = now.Add(90 * time.Minute)
	_, ok := m.Get(active.ID)
	require.True(t, ok)

	now = now.Add(time.Minute)
	expired := m.ExpireIdle(time.Hour)
	require.Len(t, expired, 1)
	assert.Equal(t, idle.ID, expired[0].ID)
	assert.Equal(t, 1, m.Len())
}

func TestSession_Pickers(t *testing.T) {
	m, _ := newTestManager(t)
	var resolvedBy []string
	m.OnLocationResolved(func(s *Session, picker string, sel location.Selection) {
		resolvedBy = append(resolvedBy, s.Username+"/"+picker)
	})
	s := m.Create(login("ada", "tok"))

	_, err := s.Picker("Not Valid")
	assert.ErrorIs(t, err, location.ErrInvalidPicker)

	origin, err := s.Picker("origin")
	require.NoError(t, err)
	again, err := s.Picker("origin")
	require.NoError(t, err)
	assert.Same(t, origin, again)

	for i := 1; i < location.MaxPickers; i++ {
		_, err := s.Picker("form-" + string(rune('a'+i)))
		require.NoError(t, err)
	}
	_, err = s.Picker("overflow")
	assert.ErrorIs(t, err, location.ErrTooManyPickers)

	assert.True(t, s.DropPicker("origin"))
	assert.False(t, s.DropPicker("origin"))
	assert.NotContains(t, s.PickerNames(), "origin")
	assert.Len(t, s.PickerNames(), location.MaxPickers-1)
	assert.Empty(t, resolvedBy)
}

func TestSession_DestroyClosesPickers(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create(login("ada", "tok"))
	_, err := s.Picker("origin")
	require.NoError(t, err)

	m.Destroy(s.ID)
	assert.Empty(t, s.PickerNames())
}

func TestContext(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create(login("ada", "tok"))

	assert.Nil(t, FromContext(context.Background()))

	ctx := NewContext(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	require.NoError(t, err)
	respond.CarrierError(httptest.NewRecorder(), req, carrier.ErrUnauthorized)
	assert.True(t, s.Expired(), "carrier rejections expire the session in the context")
}
