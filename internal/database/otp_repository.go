package database

import (
	"bugpilot/internal/models"
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

// UpsertOTP ersetzt einen vorhandenen Code für dieselbe E-Mail-Adresse.
func (r *sqlxRepository) UpsertOTP(ctx context.Context, otp *models.OTP) error {
	query := `INSERT INTO otps (email, code, expires_at, created_at) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE code = VALUES(code), expires_at = VALUES(expires_at), created_at = VALUES(created_at)`
	_, err := r.db.ExecContext(ctx, query, otp.Email, otp.Code, otp.ExpiresAt, otp.CreatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Speichern des OTP", slog.Any("error", err), slog.String("email", otp.Email))
		return err
	}
	return nil
}

func (r *sqlxRepository) GetOTPByEmail(ctx context.Context, email string) (*models.OTP, error) {
	var otp models.OTP
	query := `SELECT email, code, expires_at, created_at FROM otps WHERE email = ? LIMIT 1`
	err := r.db.GetContext(ctx, &otp, query, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Abrufen des OTP", slog.Any("error", err), slog.String("email", email))
		return nil, err
	}
	return &otp, nil
}
