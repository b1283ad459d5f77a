package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type Config struct {
	Port          string
	PublicBaseURL string
	LogLevel      slog.Level

	JWTTokenTTL time.Duration
	OTPTTL      time.Duration
	BcryptCost  int

	// Persistenz
	StoreDriver    string
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	DBPassword     string
	MigrationsPath string
	RedisAddr      string
	UploadDir      string

	// Mailversand (leerer SMTPHost => Codes werden nur geloggt)
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	// AppRole Credentials
	VaultAddr            string
	VaultAppRoleRoleID   string
	VaultAppRoleSecretID string
	VaultJWTSecretPath   string
	VaultDBCredsPath     string

	// Fallback ohne Vault
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	MetricsAllowedIPs  []string
	CORSAllowedOrigins []string
	TracingEnabled     bool
}

// UseVault ist wahr, sobald VAULT_ADDR gesetzt ist.
func (c *Config) UseVault() bool {
	return c.VaultAddr != ""
}

func LoadConfig() (*Config, error) {
	var cfg Config
	var err error

	cfg.Port = getEnv("PORT", "8080")
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("ungültiger PORT: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")
	if _, err := url.ParseRequestURI(cfg.PublicBaseURL); err != nil {
		return nil, fmt.Errorf("ungültige PUBLIC_BASE_URL: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("ungültiges LOG_LEVEL: %w", err)
	}

	cfg.JWTTokenTTL, err = time.ParseDuration(getEnv("JWT_TOKEN_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("ungültige JWT_TOKEN_TTL: %w", err)
	}

	cfg.OTPTTL, err = time.ParseDuration(getEnv("OTP_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("ungültige OTP_TTL: %w", err)
	}
	if cfg.OTPTTL < time.Minute {
		return nil, fmt.Errorf("OTP_TTL muss mindestens 1m betragen")
	}

	cfg.BcryptCost, err = strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	if err != nil || cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("ungültiger BCRYPT_COST '%s' (erlaubt: 4 bis 31)", os.Getenv("BCRYPT_COST"))
	}

	cfg.StoreDriver = getEnv("STORE_DRIVER", StoreDriverMySQL)
	if cfg.StoreDriver != StoreDriverMySQL && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("ungültiger STORE_DRIVER '%s' (erlaubt: mysql, memory)", cfg.StoreDriver)
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBHost = getEnv("DB_HOST", "db")
	cfg.DBPort = getEnv("DB_PORT", "3306")
	cfg.DBName = getEnv("DB_NAME", "bugpilot")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "file://migrations")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnv("SMTP_PORT", "587")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.MailFrom = getEnv("MAIL_FROM", cfg.SMTPUser)
	if cfg.SMTPHost != "" && cfg.MailFrom == "" {
		return nil, fmt.Errorf("konfiguration fehlt: MAIL_FROM oder SMTP_USER muss gesetzt sein, wenn SMTP_HOST gesetzt ist")
	}

	// Vault-Variablen laden
	cfg.VaultAddr = os.Getenv("VAULT_ADDR")
	cfg.VaultAppRoleRoleID = os.Getenv("BUGPILOT_APPROLE_ROLE_ID")
	cfg.VaultAppRoleSecretID = os.Getenv("BUGPILOT_APPROLE_SECRET_ID")
	cfg.VaultJWTSecretPath = os.Getenv("VAULT_JWT_SECRET_PATH")
	cfg.VaultDBCredsPath = os.Getenv("VAULT_DB_CREDS_PATH")

	cfg.JWTPrivateKeyPath = os.Getenv("JWT_PRIVATE_KEY_PATH")
	cfg.JWTPublicKeyPath = os.Getenv("JWT_PUBLIC_KEY_PATH")

	if cfg.UseVault() {
		if cfg.VaultAppRoleRoleID == "" {
			return nil, fmt.Errorf("konfiguration fehlt: BUGPILOT_APPROLE_ROLE_ID muss gesetzt sein")
		}
		if cfg.VaultAppRoleSecretID == "" {
			return nil, fmt.Errorf("konfiguration fehlt: BUGPILOT_APPROLE_SECRET_ID muss gesetzt sein")
		}
		if cfg.VaultJWTSecretPath == "" {
			return nil, fmt.Errorf("konfiguration fehlt: VAULT_JWT_SECRET_PATH muss gesetzt sein")
		}
	} else if cfg.JWTPrivateKeyPath == "" || cfg.JWTPublicKeyPath == "" {
		return nil, fmt.Errorf("konfiguration fehlt: ohne VAULT_ADDR müssen JWT_PRIVATE_KEY_PATH und JWT_PUBLIC_KEY_PATH gesetzt sein")
	}

	cfg.MetricsAllowedIPs = splitList(getEnv("METRICS_ALLOWED_IPS", "127.0.0.1,::1"))

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	cfg.TracingEnabled, err = strconv.ParseBool(getEnv("TRACING_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("ungültiges TRACING_ENABLED: %w", err)
	}

	return &cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
