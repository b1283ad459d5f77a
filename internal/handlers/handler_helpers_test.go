package handlers

import (
	"bugpilot/internal/accounts"
	"bugpilot/internal/authz"
	"bugpilot/internal/database"
	"bugpilot/internal/models"
	"bugpilot/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("eintrag 0: %w", models.ErrInvalidArgument), http.StatusBadRequest},
		{storage.ErrFileTooLarge, http.StatusBadRequest},
		{accounts.ErrInvalidOTP, http.StatusBadRequest},
		{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("benutzer hat 'viewer': %w", authz.ErrPermissionDenied), http.StatusForbidden},
		{database.ErrUserNotFound, http.StatusNotFound},
		{database.ErrProjectNotFound, http.StatusNotFound},
		{fmt.Errorf("laden: %w", database.ErrTicketNotFound), http.StatusNotFound},
		{database.ErrEmailAlreadyExists, http.StatusConflict},
		{errors.New("verbindung verloren"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(context.Background(), rec, tc.err)
			assert.Equal(t, tc.code, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestInvalidArgumentMessage(t *testing.T) {
	err := fmt.Errorf("ungültige Priorität 'X', erlaubt sind: Low, Medium, High: %w", models.ErrInvalidArgument)
	assert.Equal(t, "Ungültige Priorität 'X', erlaubt sind: Low, Medium, High", invalidArgumentMessage(err))
	assert.Equal(t, "Ungültige Anfrage", invalidArgumentMessage(models.ErrInvalidArgument))
}

func TestValidateRequest(t *testing.T) {
	ctx := context.Background()

	errs := validateRequest(ctx, CommentRequest{Text: "   "})
	assert.Equal(t, map[string]string{"text": "Feld 'text' ist erforderlich."}, errs)

	blank := " "
	errs = validateRequest(ctx, UpdateTicketRequest{Title: &blank})
	assert.Contains(t, errs, "title")

	assert.Nil(t, validateRequest(ctx, UpdateTicketRequest{}))
	assert.Nil(t, validateRequest(ctx, SendOTPRequest{Email: "a@b.de"}))
}
