package auth_test

import (
	"bugpilot/internal/auth"
	"bugpilot/internal/config"
	"bugpilot/internal/models"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestToken(t *testing.T) {
	key := newKey(t)
	user := models.NewUser("Ada", "ada@example.com", "hash")

	t.Run("round trip test", func(t *testing.T) {
		token, err := auth.GenerateToken(user, key, 7*24*time.Hour)
		require.NoError(t, err)

		claims, err := auth.ParseToken(token, &key.PublicKey)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, user.ID.String(), claims.Subject)
		assert.Equal(t, auth.Issuer, claims.Issuer)
		assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("foreign key test", func(t *testing.T) {
		token, err := auth.GenerateToken(user, newKey(t), time.Hour)
		require.NoError(t, err)

		_, err = auth.ParseToken(token, &key.PublicKey)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token test", func(t *testing.T) {
		token, err := auth.GenerateToken(user, key, -time.Minute)
		require.NoError(t, err)

		_, err = auth.ParseToken(token, &key.PublicKey)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("hmac token test", func(t *testing.T) {
		claims := auth.CustomClaims{
			UserID: user.ID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    auth.Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = auth.ParseToken(token, &key.PublicKey)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	t.Run("hash and check", func(t *testing.T) {
		hash, err := auth.HashPassword("korrekt-pferd")
		require.NoError(t, err)
		assert.NotEqual(t, "korrekt-pferd", hash)
		assert.True(t, auth.CheckPasswordHash("korrekt-pferd", hash))
		assert.False(t, auth.CheckPasswordHash("falsch", hash))
		assert.False(t, auth.CheckPasswordHash("korrekt-pferd", ""))
	})

	t.Run("configured cost", func(t *testing.T) {
		prev := auth.PasswordCost
		auth.PasswordCost = bcrypt.MinCost
		t.Cleanup(func() { auth.PasswordCost = prev })

		hash, err := auth.HashPassword("korrekt-pferd")
		require.NoError(t, err)
		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
	})

	t.Run("length limits", func(t *testing.T) {
		_, err := auth.HashPassword("kurz")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		_, err = auth.HashPassword(strings.Repeat("ä", 37))
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		assert.NoError(t, auth.ValidatePassword(strings.Repeat("a", auth.MaxPasswordBytes)))
		assert.NoError(t, auth.ValidatePassword("äöüäöüäö"))
	})
}

func TestGenerateOTPCode(t *testing.T) {
	code, err := auth.GenerateOTPCode("ada@example.com", 10*time.Minute)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestLoadKeysFromFiles(t *testing.T) {
	key := newKey(t)
	dir := t.TempDir()

	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	privDER := x509.MarshalPKCS1PrivateKey(key)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER}), 0o600))
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	t.Run("matching pair test", func(t *testing.T) {
		secrets, err := auth.LoadKeysFromFiles(privPath, pubPath)
		require.NoError(t, err)
		assert.True(t, secrets.PrivateKey.Equal(key))
	})

	t.Run("mismatched pair test", func(t *testing.T) {
		other := newKey(t)
		otherDER, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
		require.NoError(t, err)
		otherPath := filepath.Join(dir, "other.pem")
		require.NoError(t, os.WriteFile(otherPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: otherDER}), 0o600))

		_, err = auth.LoadKeysFromFiles(privPath, otherPath)
		assert.ErrorContains(t, err, "passt nicht")
	})

	t.Run("missing file test", func(t *testing.T) {
		_, err := auth.LoadKeysFromFiles(filepath.Join(dir, "fehlt.pem"), pubPath)
		assert.Error(t, err)
	})
	t.Run("raw database url gets driver flags test", func(t *testing.T) {
		cfg := &config.Config{
			JWTPrivateKeyPath: privPath,
			JWTPublicKeyPath:  pubPath,
			DatabaseURL:       "bug:pw@tcp(db:3306)/bugpilot",
		}
		secrets, err := auth.LoadSecrets(cfg)
		require.NoError(t, err)
		assert.Contains(t, secrets.DatabaseURL, "parseTime=true")
		assert.Contains(t, secrets.DatabaseURL, "multiStatements=true")

		cfg.DatabaseURL = "kein dsn"
		_, err = auth.LoadSecrets(cfg)
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
}
