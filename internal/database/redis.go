package database

import (
	"bugpilot/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const otpKeyPrefix = "bugpilot:otp:"

// NewRedisClient verbindet sich mit Redis und prüft die Verbindung per Ping.
func NewRedisClient(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("fehler bei der Verbindung zu Redis unter %s: %w", addr, err)
	}
	slog.Info("Erfolgreich mit Redis verbunden", slog.String("address", addr))
	return rdb, nil
}

// redisOTPRepository legt OTPs als JSON ab. Redis entfernt sie nach Ablauf selbst.
type redisOTPRepository struct {
	client *redis.Client
}

var _ OTPRepository = (*redisOTPRepository)(nil)

func NewRedisOTPRepository(client *redis.Client) OTPRepository {
	return &redisOTPRepository{client: client}
}

func (r *redisOTPRepository) UpsertOTP(ctx context.Context, otp *models.OTP) error {
	data, err := json.Marshal(redisOTP{Email: otp.Email, Code: otp.Code, ExpiresAt: otp.ExpiresAt, CreatedAt: otp.CreatedAt})
	if err != nil {
		return fmt.Errorf("fehler beim Serialisieren des OTP: %w", err)
	}
	ttl := time.Until(otp.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, otpKeyPrefix+otp.Email, data, ttl).Err(); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Speichern des OTP in Redis", slog.Any("error", err), slog.String("email", otp.Email))
		return err
	}
	return nil
}

func (r *redisOTPRepository) GetOTPByEmail(ctx context.Context, email string) (*models.OTP, error) {
	email = models.NormalizeEmail(email)
	data, err := r.client.Get(ctx, otpKeyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOTPNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Lesen des OTP aus Redis", slog.Any("error", err), slog.String("email", email))
		return nil, err
	}
	var stored redisOTP
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("fehler beim Deserialisieren des OTP: %w", err)
	}
	return &models.OTP{Email: stored.Email, Code: stored.Code, ExpiresAt: stored.ExpiresAt, CreatedAt: stored.CreatedAt}, nil
}

// redisOTP existiert, weil models.OTP den Code nicht nach JSON serialisiert.
type redisOTP struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
