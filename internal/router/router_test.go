package router_test

import (
	"bugpilot/internal/accounts"
	"bugpilot/internal/database/memory"
	"bugpilot/internal/mail"
	"bugpilot/internal/projects"
	"bugpilot/internal/router"
	"bugpilot/internal/storage"
	"bugpilot/internal/tickets"
	"bugpilot/internal/users"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testServer struct {
	t       *testing.T
	db      *memory.DB
	handler http.Handler
	janitor *storage.Janitor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := memory.New()
	require.NoError(t, err)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	store, err := storage.NewLocalStore(t.TempDir(), "http://bugs.test")
	require.NoError(t, err)
	janitor := storage.NewJanitor(store)

	directory := users.NewDirectory(db, db)
	handler := router.SetupRouter(router.HandlerDependencies{
		UserRepo:          db,
		DBPinger:          db,
		PublicKey:         &key.PublicKey,
		Accounts:          accounts.NewService(db, db, mail.LogMailer{}, key, time.Hour, 10*time.Minute),
		Projects:          projects.NewService(db, directory),
		Tickets:           tickets.NewService(db, db, directory, store, janitor),
		Directory:         directory,
		UploadDir:         store.Dir(),
		MetricsAllowedIPs: []string{"127.0.0.1"},
	})
	return &testServer{t: t, db: db, handler: handler, janitor: janitor}
}

func (s *testServer) do(method, target, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// register durchläuft send-otp und verify-otp und liefert die Session.
func (s *testServer) register(name string) accounts.Session {
	s.t.Helper()
	email := name + "@example.com"
	rec := s.do(http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	otp, err := s.db.GetOTPByEmail(context.Background(), email)
	require.NoError(s.t, err)

	rec = s.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"name": name, "email": email, "password": "geheim123", "otp": otp.Code,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[accounts.Session](s.t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	session := s.register("anna")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "anna@example.com", session.User.Email)

	t.Run("second registration conflicts", func(t *testing.T) {
		otp, err := s.db.GetOTPByEmail(context.Background(), "anna@example.com")
		require.NoError(t, err)
		rec := s.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
			"name": "anna", "email": "anna@example.com", "password": "geheim123", "otp": otp.Code,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "anna@example.com", "password": "geheim123"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode[accounts.Session](t, rec).Token)

		rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "anna@example.com", "password": "falsch"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("validation errors name the field", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"name": "x", "email": "kaputt", "password": "kurz", "otp": "12"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[map[string]string](t, rec)
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
		assert.Contains(t, errs, "otp")
	})

	t.Run("wrong otp", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": "ben@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		otp, err := s.db.GetOTPByEmail(context.Background(), "ben@example.com")
		require.NoError(t, err)
		wrong := "000000"
		if otp.Code == wrong {
			wrong = "999999"
		}
		rec = s.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
			"name": "ben", "email": "ben@example.com", "password": "geheim123", "otp": wrong,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("protected routes need a valid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/projects", "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/projects", "kaputt", nil).Code)
	})
}

func TestProjectRoutes(t *testing.T) {
	s := newTestServer(t)
	u1, u2, u3 := s.register("u1"), s.register("u2"), s.register("u3")

	rec := s.do(http.MethodPost, "/api/projects", u1.Token, map[string]string{"name": "Webshop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[projects.Detail](t, rec)
	membersURL := "/api/projects/" + project.ID.String() + "/members"

	rec = s.do(http.MethodGet, "/api/projects/"+project.ID.String(), u2.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, membersURL, u1.Token, map[string]any{"newMembers": []map[string]string{
		{"user": u2.User.ID.String(), "role": "developer"},
		{"user": u3.User.ID.String(), "role": "viewer"},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"project"`)

	rec = s.do(http.MethodPost, membersURL, u1.Token, map[string]any{"newMembers": []map[string]string{
		{"user": u2.User.ID.String(), "role": "admin"},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"project"`)

	rec = s.do(http.MethodPost, membersURL, u2.Token, map[string]any{"newMembers": []map[string]string{
		{"user": uuid.NewString(), "role": "viewer"},
	}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, membersURL, u2.Token, map[string]any{"newMembers": []map[string]string{
		{"user": "kaputt", "role": "viewer"},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, membersURL, u1.Token, map[string]any{"newMembers": []map[string]string{
		{"user": uuid.NewString(), "role": "owner"},
	}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "viewer")

	rec = s.do(http.MethodGet, "/api/projects/"+project.ID.String(), u3.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[projects.Detail](t, rec).Members, 3)

	rec = s.do(http.MethodGet, "/api/projects/"+uuid.NewString(), u1.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, "/api/projects/nicht-da", u1.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/projects", u2.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]projects.Detail](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/users/search?email=example&projectId="+project.ID.String(), u1.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/users/search?email=U2", u3.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u2@example.com")
}

func uploadRequest(t *testing.T, target, token, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("note", "ignoriert"))
	part, err := w.CreateFormFile(storage.FieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestTicketRoutes(t *testing.T) {
	s := newTestServer(t)
	owner, dev := s.register("owner"), s.register("dev")

	rec := s.do(http.MethodPost, "/api/projects", owner.Token, map[string]string{"name": "App"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[projects.Detail](t, rec)

	rec = s.do(http.MethodPost, "/api/tickets", owner.Token, map[string]string{"title": "Crash", "project": project.ID.String(), "priority": "High"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticket := decode[tickets.View](t, rec)
	ticketURL := "/api/tickets/" + ticket.ID.String()

	rec = s.do(http.MethodPost, "/api/tickets", owner.Token, map[string]string{"title": "Crash", "project": project.ID.String(), "priority": "Sofort"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, ticketURL, owner.Token, map[string]any{"assignees": []string{dev.User.ID.String()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("assignee changes status but not title", func(t *testing.T) {
		rec := s.do(http.MethodPut, ticketURL, dev.Token, map[string]any{"status": "In Progress"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "In Progress", string(decode[tickets.View](t, rec).Status))

		rec = s.do(http.MethodPut, ticketURL, dev.Token, map[string]any{"title": "Anders"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodPut, ticketURL, dev.Token, map[string]any{"assignees": "keine liste"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lists", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/tickets/my-tickets", dev.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]tickets.View](t, rec), 1)

		rec = s.do(http.MethodGet, "/api/tickets/project/"+project.ID.String(), owner.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]tickets.View](t, rec), 1)
	})

	t.Run("comment", func(t *testing.T) {
		rec := s.do(http.MethodPost, ticketURL+"/comments", dev.Token, map[string]string{"text": "Schaue ich mir an"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = s.do(http.MethodPost, ticketURL+"/comments", dev.Token, map[string]string{"text": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upload and serve screenshot", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, uploadRequest(t, ticketURL+"/upload-screenshot", dev.Token, "crash.png", pngHeader))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		imageURL := decode[map[string]string](t, rec)["imageUrl"]
		require.True(t, strings.HasPrefix(imageURL, "http://bugs.test/uploads/"), imageURL)

		parsed, err := url.Parse(imageURL)
		require.NoError(t, err)
		rec = s.do(http.MethodGet, parsed.Path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pngHeader, rec.Body.Bytes())

		// Das Upload-Verzeichnis selbst ist nicht auflistbar.
		rec = s.do(http.MethodGet, storage.URLPrefix, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "screenshot-")

		rec = s.do(http.MethodGet, ticketURL, owner.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[tickets.View](t, rec)
		assert.Equal(t, []string{imageURL}, view.Screenshots)
		require.Len(t, view.Comments, 1)
		assert.Equal(t, "dev", view.Comments[0].User.Name)
	})

	t.Run("upload rejects other files", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, uploadRequest(t, ticketURL+"/upload-screenshot", dev.Token, "notiz.txt", []byte("hallo")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		s.handler.ServeHTTP(rec, uploadRequest(t, "/api/tickets/"+uuid.NewString()+"/upload-screenshot", dev.Token, "crash.png", pngHeader))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(http.MethodPost, ticketURL+"/upload-screenshot", dev.Token, map[string]string{"x": "y"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := s.do(http.MethodDelete, ticketURL, dev.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(http.MethodDelete, ticketURL, owner.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, s.janitor.Wait(context.Background()))

		rec = s.do(http.MethodGet, ticketURL, owner.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
