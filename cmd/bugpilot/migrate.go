package main

import (
	"bugpilot/internal/auth"
	"bugpilot/internal/config"
	"bugpilot/internal/database"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Verwaltet das MySQL-Schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Wendet alle ausstehenden Migrationen an",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationDB(func(db *database.DB, cfg *config.Config, dbName string) error {
				return database.RunMigrations(db.DB.DB, cfg.MigrationsPath, dbName)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Rollt die angegebene Anzahl Migrationen zurück (Standard: 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("ungültige Anzahl Schritte '%s'", args[0])
				}
				steps = n
			}
			return withMigrationDB(func(db *database.DB, cfg *config.Config, dbName string) error {
				return database.RollbackMigrations(db.DB.DB, cfg.MigrationsPath, dbName, steps)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Zeigt die aktuelle Schema-Version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationDB(func(db *database.DB, cfg *config.Config, dbName string) error {
				version, dirty, ok, err := database.MigrationVersion(db.DB.DB, cfg.MigrationsPath, dbName)
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println("Keine Migration angewendet")
					return nil
				}
				cmd.Printf("Version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrationDB(fn func(db *database.DB, cfg *config.Config, dbName string) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverMySQL {
		return fmt.Errorf("migrationen sind nur mit STORE_DRIVER=mysql verfügbar")
	}

	secrets, err := auth.LoadSecrets(cfg)
	if err != nil {
		return err
	}
	db, err := database.ConnectDB(secrets.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	dbName, err := database.DatabaseName(secrets.DatabaseURL)
	if err != nil {
		return err
	}
	slog.Info("Führe Migrationsbefehl aus", slog.String("database", dbName))
	return fn(db, cfg, dbName)
}
