package models

import (
	"crypto/subtle"
	"time"
)

// OTP ist der einzige gültige Einmalcode pro E-Mail-Adresse. Ein neuer Code ersetzt den alten.
type OTP struct {
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func NewOTP(email, code string, ttl time.Duration) *OTP {
	now := time.Now().UTC()
	return &OTP{
		Email:     NormalizeEmail(email),
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Matches verlangt exakte Übereinstimmung und einen noch nicht abgelaufenen Datensatz.
func (o *OTP) Matches(code string, now time.Time) bool {
	if o == nil || code == "" {
		return false
	}
	if !now.Before(o.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) == 1
}
