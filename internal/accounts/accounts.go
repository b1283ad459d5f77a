// Package accounts implementiert Registrierung per E-Mail-Einmalcode und Anmeldung.
package accounts

import (
	"bugpilot/internal/auth"
	"bugpilot/internal/database"
	"bugpilot/internal/mail"
	"bugpilot/internal/metrics"
	"bugpilot/internal/models"
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var ErrInvalidOTP = errors.New("ungültiger oder abgelaufener Code")
var ErrInvalidCredentials = errors.New("ungültige Anmeldedaten")

// Session ist das Ergebnis einer erfolgreichen Registrierung oder Anmeldung.
type Session struct {
	Token string         `json:"token"`
	User  models.UserRef `json:"user"`
}

type Service struct {
	UserRepo   database.UserRepository
	OTPRepo    database.OTPRepository
	Mailer     mail.Mailer
	PrivateKey *rsa.PrivateKey
	TokenTTL   time.Duration
	OTPTTL     time.Duration

	now func() time.Time
}

func NewService(
	userRepo database.UserRepository,
	otpRepo database.OTPRepository,
	mailer mail.Mailer,
	privateKey *rsa.PrivateKey,
	tokenTTL time.Duration,
	otpTTL time.Duration,
) *Service {
	return &Service{
		UserRepo:   userRepo,
		OTPRepo:    otpRepo,
		Mailer:     mailer,
		PrivateKey: privateKey,
		TokenTTL:   tokenTTL,
		OTPTTL:     otpTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendOTP erzeugt einen neuen 6-stelligen Code, ersetzt einen vorhandenen und verschickt ihn per Mail.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("e-mail ist erforderlich: %w", models.ErrInvalidArgument)
	}

	code, err := auth.GenerateOTPCode(email, s.OTPTTL)
	if err != nil {
		return err
	}

	otp := models.NewOTP(email, code, s.OTPTTL)
	otp.CreatedAt = s.now()
	otp.ExpiresAt = otp.CreatedAt.Add(s.OTPTTL)
	if err := s.OTPRepo.UpsertOTP(ctx, otp); err != nil {
		return fmt.Errorf("fehler beim Speichern des OTP: %w", err)
	}

	subject, body := mail.OTPMessage(code, s.OTPTTL)
	if err := s.Mailer.Send(ctx, email, subject, body); err != nil {
		return fmt.Errorf("fehler beim Versenden des OTP: %w", err)
	}

	metrics.OTPEvents.WithLabelValues("issued").Inc()
	slog.InfoContext(ctx, "OTP versendet", slog.String("email", email), slog.Time("expires_at", otp.ExpiresAt))
	return nil
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Code     string
}

// VerifyOTPAndRegister prüft den Code und legt genau einen Benutzer an. Der OTP-Datensatz bleibt
// bestehen; eine zweite Registrierung scheitert an der bereits vergebenen E-Mail.
func (s *Service) VerifyOTPAndRegister(ctx context.Context, in RegisterInput) (*Session, error) {
	email := models.NormalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" || email == "" || in.Password == "" || in.Code == "" {
		return nil, fmt.Errorf("name, email, password und otp sind erforderlich: %w", models.ErrInvalidArgument)
	}

	otp, err := s.OTPRepo.GetOTPByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrOTPNotFound) {
		return nil, fmt.Errorf("fehler beim Abrufen des OTP: %w", err)
	}
	if !otp.Matches(in.Code, s.now()) {
		metrics.OTPEvents.WithLabelValues("rejected").Inc()
		slog.WarnContext(ctx, "OTP-Prüfung fehlgeschlagen", slog.String("email", email))
		return nil, ErrInvalidOTP
	}
	metrics.OTPEvents.WithLabelValues("verified").Inc()

	if _, err := s.UserRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, database.ErrEmailAlreadyExists
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.NewUser(in.Name, email, hash)
	if err := s.UserRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Benutzer registriert", slog.String("user_id", user.ID.String()))

	return s.session(user)
}

// Login prüft E-Mail und Passwort. Unbekannte E-Mail und falsches Passwort sind nicht unterscheidbar.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	user, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			slog.WarnContext(ctx, "Login fehlgeschlagen: Benutzer nicht gefunden", slog.String("email", email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		slog.WarnContext(ctx, "Login fehlgeschlagen: falsches Passwort", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	slog.InfoContext(ctx, "Benutzer angemeldet", slog.String("user_id", user.ID.String()))
	return s.session(user)
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user, s.PrivateKey, s.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.Ref()}, nil
}
