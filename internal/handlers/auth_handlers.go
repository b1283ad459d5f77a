package handlers

import (
	"bugpilot/internal/accounts"
	"log/slog"
	"net/http"
)

type AuthHandlers struct {
	Accounts *accounts.Service
}

func NewAuthHandlers(accountService *accounts.Service) *AuthHandlers {
	return &AuthHandlers{Accounts: accountService}
}

func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, session, http.StatusOK)
}

// SendOTPHandler verschickt einen Registrierungscode an die angegebene Adresse.
func (h *AuthHandlers) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.Accounts.SendOTP(ctx, req.Email); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, MessageResponse{Message: "Code wurde an die E-Mail-Adresse gesendet"}, http.StatusOK)
}

func (h *AuthHandlers) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.Accounts.VerifyOTPAndRegister(ctx, accounts.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.OTP,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	slog.InfoContext(ctx, "Benutzer erfolgreich registriert", slog.String("user_id", session.User.ID.String()))
	writeJSONResponse(w, session, http.StatusCreated)
}
