package middleware_test

import (
	"bugpilot/internal/auth"
	"bugpilot/internal/database/memory"
	"bugpilot/internal/middleware"
	"bugpilot/internal/models"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestCORS(t *testing.T) {
	t.Run("allow list", func(t *testing.T) {
		h := middleware.CORS(middleware.DefaultCORSConfig([]string{"https://app.example.com"}))(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := middleware.CORS(middleware.DefaultCORSConfig([]string{"*"}))(okHandler)

		req := httptest.NewRequest(http.MethodOptions, "/api/tickets", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}

func TestGatekeeper(t *testing.T) {
	h := middleware.Gatekeeper([]string{"10.0.0.1", " ::1"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req.RemoteAddr = "[::1]:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req.RemoteAddr = "10.0.0.2:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestRequestMetaContext(t *testing.T) {
	var meta middleware.RequestMeta
	var found bool
	h := middleware.RequestMetaContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, found = middleware.GetRequestMetaFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	req.Header.Set("User-Agent", "bugpilot-test")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, found)
	assert.Equal(t, "192.0.2.7", meta.IPAddress)
	assert.Equal(t, "bugpilot-test", meta.UserAgent)
}

func TestUserIDContext(t *testing.T) {
	id := uuid.New()
	ctx := middleware.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), id)
	got, ok := middleware.GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestAuthenticator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	db, err := memory.New()
	require.NoError(t, err)
	user := models.NewUser("Ada", "ada@example.com", "hash")
	token, err := auth.GenerateToken(user, key, time.Hour)
	require.NoError(t, err)

	handler := middleware.Authenticator(&key.PublicKey, db)(okHandler)
	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}
	errorOf := func(rec *httptest.ResponseRecorder) string {
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body["error"]
	}

	rec := call("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Authentifizierung erforderlich", errorOf(rec))

	rec = call("Bearer kaputt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Ungültiger oder abgelaufener Token", errorOf(rec))

	rec = call("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Benutzer nicht gefunden", errorOf(rec))

	require.NoError(t, db.CreateUser(context.Background(), user))
	rec = call("Bearer " + token)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
