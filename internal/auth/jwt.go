package auth

import (
	"bugpilot/internal/models"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("ungültiger oder abgelaufener token")

func GenerateToken(user *models.User, privateKey *rsa.PrivateKey, ttl time.Duration) (string, error) {
	if user == nil {
		return "", fmt.Errorf("benutzer darf nicht nil sein")
	}
	if privateKey == nil {
		return "", fmt.Errorf("privater Schlüssel darf nicht nil sein")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	claims := CustomClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signedToken, err := token.SignedString(privateKey)
	if err != nil {
		slog.Error("Fehler beim Signieren des JWT", slog.Any("error", err))
		return "", fmt.Errorf("fehler beim Signieren des JWT: %w", err)
	}

	slog.Debug("JWT erfolgreich erstellt", slog.String("user_id", user.ID.String()), slog.Time("expires_at", expiresAt))
	return signedToken, nil
}

// ParseToken prüft Signatur (nur RSA), Ablauf und Aussteller.
func ParseToken(tokenString string, publicKey *rsa.PublicKey) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unerwarteter Signaturalgorithmus: %v", token.Header["alg"])
		}
		return publicKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id fehlt", ErrInvalidToken)
	}
	return claims, nil
}
