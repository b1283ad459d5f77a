package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateOTPCode erzeugt einen 6-stelligen Code aus einem frischen, zufälligen TOTP-Secret.
// Das Secret wird nicht gespeichert; geprüft wird später gegen den gespeicherten Code.
func GenerateOTPCode(accountName string, period time.Duration) (string, error) {
	opts := totp.ValidateOpts{
		Period:    uint(period.Seconds()),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "BugPilot",
		AccountName: accountName,
		Period:      opts.Period,
		Digits:      opts.Digits,
		Algorithm:   opts.Algorithm,
	})
	if err != nil {
		slog.Error("Fehler beim Generieren des OTP-Secrets", slog.Any("error", err))
		return "", fmt.Errorf("fehler beim Generieren des OTP-Secrets: %w", err)
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), time.Now().UTC(), opts)
	if err != nil {
		slog.Error("Fehler beim Generieren des OTP-Codes", slog.Any("error", err))
		return "", fmt.Errorf("fehler beim Generieren des OTP-Codes: %w", err)
	}
	return code, nil
}
