package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/respond"
	"shipdesk/internal/session"
	"shipdesk/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/sessions"
)

const (
	CookieName    = "shipdesk-session"
	TokenLifetime = 12 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	jwt.StandardClaims
}

type AuthHandlers struct {
	Config   *config.Config
	Carrier  *carrier.Client
	Sessions *session.Manager
	Store    *sessions.CookieStore
	Events   *eventlog.EventLogService
}

func NewAuthHandlers(cfg *config.Config, carrierClient *carrier.Client, manager *session.Manager,
	store *sessions.CookieStore, events *eventlog.EventLogService) *AuthHandlers {
	return &AuthHandlers{
		Config:   cfg,
		Carrier:  carrierClient,
		Sessions: manager,
		Store:    store,
		Events:   events,
	}
}

// NewCookieStore creates the store for the browser session cookie
func NewCookieStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(TokenLifetime.Seconds()),
		HttpOnly: true,
		Secure:   false, // Set to false for HTTP (localhost development)
		SameSite: http.SameSiteStrictMode,
	}
	return store
}

func GenerateJWT(key []byte, username, sessionID string) (string, error) {
	expirationTime := time.Now().Add(TokenLifetime)
	claims := &Claims{
		Username:  username,
		SessionID: sessionID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ParseJWT validates tokenStr and returns its claims
func ParseJWT(key []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromRequest reads the console token from the Authorization header or, failing
// that, the session cookie
func TokenFromRequest(r *http.Request, store *sessions.CookieStore) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	if store == nil {
		return ""
	}
	cookie, err := store.Get(r, CookieName)
	if err != nil {
		return ""
	}
	token, _ := cookie.Values["token"].(string)
	return token
}

// Resolve maps a request to its live session
func (h *AuthHandlers) Resolve(r *http.Request) (*session.Session, bool) {
	tokenStr := TokenFromRequest(r, h.Store)
	if tokenStr == "" {
		return nil, false
	}
	claims, err := ParseJWT(h.Config.JwtKey, tokenStr)
	if err != nil {
		return nil, false
	}
	s, ok := h.Sessions.Get(claims.SessionID)
	if !ok || s.Username != claims.Username {
		return nil, false
	}
	return s, true
}

func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds carrier.Credentials
	err := json.NewDecoder(r.Body).Decode(&creds)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	resp, err := h.Carrier.Login(r.Context(), creds)
	if err != nil {
		var apiErr *carrier.APIError
		switch {
		case errors.Is(err, carrier.ErrUnauthorized):
			respond.Error(w, http.StatusUnauthorized, "Invalid username or password")
		case errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusForbidden):
			respond.Error(w, http.StatusUnauthorized, "Invalid username or password")
		default:
			respond.CarrierError(w, r, err)
		}
		return
	}

	s := h.Sessions.Create(resp)
	tokenString, err := GenerateJWT(h.Config.JwtKey, s.Username, s.ID)
	if err != nil {
		h.Sessions.Destroy(s.ID)
		respond.Error(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	cookie, _ := h.Store.Get(r, CookieName)
	cookie.Values["token"] = tokenString
	if err := cookie.Save(r, w); err != nil {
		h.Sessions.Destroy(s.ID)
		respond.Error(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.Events.Record(s.Username, models.Login, "")
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"token": tokenString,
		"user":  s.Profile,
	})
}

func (h *AuthHandlers) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Resolve(r)
	if !ok {
		respond.Unauthorized(w, "Unauthorized")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"user":    s.Profile,
		"pickers": s.PickerNames(),
	})
}

func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.Resolve(r); ok {
		h.Sessions.Destroy(s.ID)
		h.Events.Record(s.Username, models.Logout, "")
	}

	cookie, _ := h.Store.Get(r, CookieName)
	cookie.Values = make(map[interface{}]interface{})
	cookie.Options.MaxAge = -1
	cookie.Save(r, w)

	respond.JSON(w, http.StatusOK, map[string]string{"redirect": respond.LoginPath})
}
