// Package main ist der Einstiegspunkt von BugPilot.
package main

import (
	"bugpilot/internal/config"
	"bugpilot/internal/logging"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "bugpilot",
	Short:         "Projekt- und Ticketverwaltung mit rollenbasierter Autorisierung",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newMigrateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Befehl fehlgeschlagen", slog.Any("error", err))
		os.Exit(1)
	}
}

// setup lädt .env und Konfiguration und installiert den Standard-Logger.
func setup() (*config.Config, error) {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Fehler beim Laden der .env-Datei (ignoriert)", slog.Any("error", err))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logging.NewLogger(os.Stdout, cfg.LogLevel))
	return cfg, nil
}
