package middleware

import (
	"bugpilot/internal/auth"
	"bugpilot/internal/database"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const UserIDContextKey contextKey = "userID"

// Authenticator prüft den Bearer-Token und lädt den Benutzer. Existiert der Benutzer nicht
// (mehr), wird die Anfrage mit 401 abgelehnt.
func Authenticator(publicKey *rsa.PublicKey, users database.UserRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokenString, err := extractBearerToken(r)
			if err != nil {
				slog.WarnContext(ctx, "Authentifizierung fehlgeschlagen: Kein oder ungültiger Token", slog.Any("error", err))
				writeError(w, "Authentifizierung erforderlich", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(tokenString, publicKey)
			if err != nil {
				slog.WarnContext(ctx, "Authentifizierung fehlgeschlagen: Token Validierung fehlgeschlagen", slog.Any("error", err))
				writeError(w, "Ungültiger oder abgelaufener Token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				slog.WarnContext(ctx, "Authentifizierung fehlgeschlagen: user_id ist keine UUID", slog.String("user_id", claims.UserID))
				writeError(w, "Ungültiger Token", http.StatusUnauthorized)
				return
			}

			if _, err := users.GetUserByID(ctx, userID); err != nil {
				if errors.Is(err, database.ErrUserNotFound) {
					slog.WarnContext(ctx, "Authentifizierung fehlgeschlagen: Benutzer existiert nicht", slog.String("user_id", claims.UserID))
					writeError(w, "Benutzer nicht gefunden", http.StatusUnauthorized)
					return
				}
				slog.ErrorContext(ctx, "Fehler beim Laden des authentifizierten Benutzers", slog.Any("error", err), slog.String("user_id", claims.UserID))
				writeError(w, "Interner Serverfehler", http.StatusInternalServerError)
				return
			}

			ctx = context.WithValue(ctx, UserIDContextKey, userID)
			slog.DebugContext(ctx, "Authentifizierung erfolgreich", slog.String("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization Header fehlt")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", fmt.Errorf("authorization Header Format ist ungültig ('Bearer TOKEN')")
	}

	return parts[1], nil
}

// GetUserIDFromContext liefert die ID des authentifizierten Benutzers.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// WithUserID setzt den authentifizierten Benutzer (für Tests).
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Fehler beim Schreiben der Fehlerantwort", slog.Any("error", err))
	}
}
