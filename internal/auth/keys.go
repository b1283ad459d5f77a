package auth

import (
	"bugpilot/internal/config"
	"bugpilot/internal/database"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/vault/api"
)

// createVaultClient ist eine interne Hilfsfunktion
func createVaultClient(cfg *config.Config) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.VaultAddr
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen des Vault-Clients: %w", err)
	}

	slog.Info("Führe Vault AppRole-Login aus...")
	appRoleData := map[string]any{
		"role_id":   cfg.VaultAppRoleRoleID,
		"secret_id": cfg.VaultAppRoleSecretID,
	}

	resp, err := client.Logical().Write("auth/approle/login", appRoleData)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Vault AppRole-Login: %w", err)
	}
	if resp == nil || resp.Auth == nil {
		return nil, fmt.Errorf("vault AppRole-Login gab keine Authentifizierungsdaten zurück")
	}

	client.SetToken(resp.Auth.ClientToken)
	slog.Info("Vault AppRole-Login erfolgreich. Kurzlebiger Token gesetzt.")
	return client, nil
}

// readKV2SecretData liest Daten aus der KV v2 Engine
func readKV2SecretData(client *api.Client, path string) (map[string]any, error) {
	secret, err := client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen des Secrets von Vault %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("keine daten gefunden unter Vault-Pfad: %s", path)
	}

	// Bei KV v2 sind die Daten in einem "data"-Feld verschachtelt
	secretData, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return secret.Data, nil
	}
	return secretData, nil
}

// Secrets bündelt Schlüsselmaterial und (optional) den DSN aus Vault.
type Secrets struct {
	PrivateKey  *rsa.PrivateKey
	PublicKey   *rsa.PublicKey
	DatabaseURL string
}

// LoadSecrets liest aus Vault, wenn VAULT_ADDR gesetzt ist, sonst aus PEM-Dateien.
// Ohne Vault-DB-Credentials wird der DSN aus der Konfiguration gebildet.
func LoadSecrets(cfg *config.Config) (*Secrets, error) {
	var secrets *Secrets
	var err error
	if cfg.UseVault() {
		secrets, err = LoadSecretsFromVault(cfg)
	} else {
		secrets, err = LoadKeysFromFiles(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
	}
	if err != nil {
		return nil, err
	}

	if secrets.DatabaseURL == "" && cfg.DatabaseURL != "" {
		secrets.DatabaseURL, err = database.NormalizeDSN(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("ungültige DATABASE_URL: %w", err)
		}
	}
	if secrets.DatabaseURL == "" && cfg.DBUser != "" {
		secrets.DatabaseURL = database.BuildDSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	return secrets, nil
}

func LoadSecretsFromVault(cfg *config.Config) (*Secrets, error) {
	slog.Debug("Erstelle Vault-Client für BugPilot-Secrets...", slog.String("address", cfg.VaultAddr))
	client, err := createVaultClient(cfg)
	if err != nil {
		return nil, err
	}

	secrets := &Secrets{}

	// --- 1. JWT-Schlüssel (KV v2 Engine) ---
	slog.Debug("Lese JWT-Schlüssel aus Vault", slog.String("path", cfg.VaultJWTSecretPath))
	jwtSecretData, err := readKV2SecretData(client, cfg.VaultJWTSecretPath)
	if err != nil {
		slog.Error("Fehler beim Lesen der JWT-Daten", slog.Any("error", err))
		return nil, err
	}

	privateKeyPEM, _ := jwtSecretData["private_key"].(string)
	publicKeyPEM, _ := jwtSecretData["public_key"].(string)
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, fmt.Errorf("private_key oder public_key fehlen im Vault Secret")
	}

	secrets.PrivateKey, secrets.PublicKey, err = ParseKeyPair([]byte(privateKeyPEM), []byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}
	slog.Info("JWT-Schlüssel erfolgreich geladen.")

	// --- 2. Datenbank (Database Engine), optional ---
	if cfg.VaultDBCredsPath == "" {
		return secrets, nil
	}
	slog.Debug("Lese dynamische DB-Credentials aus Vault", slog.String("path", cfg.VaultDBCredsPath))

	dbSecret, err := client.Logical().Read(cfg.VaultDBCredsPath)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der DB-Credentials: %w", err)
	}
	if dbSecret == nil || dbSecret.Data == nil {
		return nil, fmt.Errorf("keine Credentials von Vault unter %s erhalten", cfg.VaultDBCredsPath)
	}

	username, ok1 := dbSecret.Data["username"].(string)
	password, ok2 := dbSecret.Data["password"].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("vault antwort enthielt keine username/password felder")
	}

	secrets.DatabaseURL = database.BuildDSN(username, password, cfg.DBHost, cfg.DBPort, cfg.DBName)
	slog.Info("Dynamische DB-Credentials geladen und DSN generiert", slog.String("db_user", username))
	return secrets, nil
}

// LoadKeysFromFiles liest das RSA-Schlüsselpaar aus PEM-Dateien.
func LoadKeysFromFiles(privateKeyPath, publicKeyPath string) (*Secrets, error) {
	privateKeyPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der privaten Schlüsseldatei %s: %w", privateKeyPath, err)
	}
	publicKeyPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der öffentlichen Schlüsseldatei %s: %w", publicKeyPath, err)
	}

	privateKey, publicKey, err := ParseKeyPair(privateKeyPEM, publicKeyPEM)
	if err != nil {
		return nil, err
	}
	slog.Info("JWT-Schlüssel aus Dateien geladen", slog.String("public_key_path", publicKeyPath))
	return &Secrets{PrivateKey: privateKey, PublicKey: publicKey}, nil
}

func ParseKeyPair(privateKeyPEM, publicKeyPEM []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("fehler beim Parsen des privaten Schlüssels: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("fehler beim Parsen des öffentlichen Schlüssels: %w", err)
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, nil, fmt.Errorf("öffentlicher Schlüssel passt nicht zum privaten Schlüssel")
	}
	return privateKey, publicKey, nil
}
