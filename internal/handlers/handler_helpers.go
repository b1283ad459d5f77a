package handlers

import (
	"bugpilot/internal/accounts"
	"bugpilot/internal/authz"
	"bugpilot/internal/database"
	"bugpilot/internal/middleware"
	"bugpilot/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// init() registriert alle benutzerdefinierten Validatoren
func init() {
	validate.RegisterValidation("notblank", notBlankValidator)
	validate.RegisterTagNameFunc(jsonFieldName)
}

// notBlankValidator lehnt Strings ab, die nach dem Trimmen leer sind.
func notBlankValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func validateRequest(ctx context.Context, req interface{}) map[string]string {
	err := validate.StructCtx(ctx, req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"error": err.Error()}
	}
	errorMessages := make(map[string]string)

	for _, fieldErr := range validationErrors {
		fieldName := fieldErr.Field()
		switch fieldErr.Tag() {
		case "required", "notblank":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' ist erforderlich.", fieldName)
		case "email":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' muss eine gültige E-Mail-Adresse sein.", fieldName)
		case "min":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' muss mindestens %s Zeichen lang sein.", fieldName, fieldErr.Param())
		case "max":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' darf höchstens %s Zeichen lang sein.", fieldName, fieldErr.Param())
		case "numeric":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' muss numerisch sein.", fieldName)
		case "len":
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' muss genau %s Zeichen lang sein.", fieldName, fieldErr.Param())
		default:
			errorMessages[fieldName] = fmt.Sprintf("Feld '%s' ist ungültig (%s).", fieldName, fieldErr.Tag())
		}
	}
	return errorMessages
}

// decodeAndValidate liest den JSON-Body und schreibt bei Fehlern selbst die Antwort.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSONError(w, "Ungültiger JSON Body", http.StatusBadRequest)
		return false
	}
	if validationErrs := validateRequest(r.Context(), req); validationErrs != nil {
		writeJSONResponse(w, validationErrs, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func writeJSONResponse(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Fehler beim Senden der JSON-Antwort", slog.Any("error", err))
	}
}

// writeServiceError bildet Fehler der Fachlogik auf HTTP-Statuscodes ab.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		writeJSONError(w, invalidArgumentMessage(err), http.StatusBadRequest)
	case errors.Is(err, accounts.ErrInvalidOTP):
		writeJSONError(w, "Ungültiger oder abgelaufener Code", http.StatusBadRequest)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeJSONError(w, "Ungültige Anmeldedaten", http.StatusUnauthorized)
	case errors.Is(err, authz.ErrPermissionDenied):
		writeJSONError(w, "Zugriff verweigert", http.StatusForbidden)
	case errors.Is(err, database.ErrUserNotFound):
		writeJSONError(w, "Benutzer nicht gefunden", http.StatusNotFound)
	case errors.Is(err, database.ErrProjectNotFound):
		writeJSONError(w, "Projekt nicht gefunden", http.StatusNotFound)
	case errors.Is(err, database.ErrTicketNotFound):
		writeJSONError(w, "Ticket nicht gefunden", http.StatusNotFound)
	case errors.Is(err, database.ErrEmailAlreadyExists):
		writeJSONError(w, "E-Mail-Adresse ist bereits registriert", http.StatusConflict)
	default:
		slog.ErrorContext(ctx, "Interner Fehler bei der Verarbeitung der Anfrage", slog.Any("error", err))
		writeJSONError(w, "Interner Serverfehler", http.StatusInternalServerError)
	}
}

func invalidArgumentMessage(err error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+models.ErrInvalidArgument.Error())
	if msg == "" || msg == models.ErrInvalidArgument.Error() {
		return "Ungültige Anfrage"
	}
	first, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(first)) + msg[size:]
}

// actorFromContext liefert den authentifizierten Benutzer; fehlt er, wurde die Route ohne Authenticator montiert.
func actorFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		slog.ErrorContext(r.Context(), "Benutzeridentifikation im Kontext fehlt")
		writeJSONError(w, "Benutzeridentifikation im Kontext fehlt", http.StatusInternalServerError)
		return uuid.Nil, false
	}
	return userID, true
}

func HealthCheckHandler(pinger database.DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := pinger.PingContext(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Health Check fehlgeschlagen: DB nicht erreichbar", slog.Any("error", err))
			http.Error(w, "NOK", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
