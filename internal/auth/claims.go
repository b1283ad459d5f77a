package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "bugpilot"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
