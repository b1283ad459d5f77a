package auth

import (
	"bugpilot/internal/models"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt wertet nur die ersten 72 Bytes aus.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// PasswordCost ist in Tests niedriger gesetzt.
var PasswordCost = bcrypt.DefaultCost

// ValidatePassword prüft die Länge, bevor ein Hash erzeugt wird.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("passwort muss mindestens %d Zeichen lang sein: %w", MinPasswordLength, models.ErrInvalidArgument)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("passwort darf höchstens %d Bytes lang sein: %w", MaxPasswordBytes, models.ErrInvalidArgument)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		slog.Error("Fehler beim Hashen des Passworts", slog.Any("error", err))
		return "", fmt.Errorf("fehler beim Hashen des Passworts: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash vergleicht in konstanter Zeit. Ein leerer Hash passt nie.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
