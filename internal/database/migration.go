package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func newMigrator(db *sql.DB, sourceURL, dbName string) (*migrate.Migrate, error) {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Laden der Migrationen aus %s: %w", sourceURL, err)
	}
	return m, nil
}

func RunMigrations(db *sql.DB, sourceURL, dbName string) error {
	slog.Info("Starte Datenbank-Migrationen...", slog.String("source", sourceURL))

	m, err := newMigrator(db, sourceURL, dbName)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("Datenbank ist bereits auf dem neuesten Stand.")
			return nil
		}
		return err
	}

	slog.Info("Datenbank-Migrationen erfolgreich abgeschlossen.")
	return nil
}

// RollbackMigrations nimmt die letzten steps Migrationen zurück.
func RollbackMigrations(db *sql.DB, sourceURL, dbName string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps muss größer als 0 sein")
	}
	m, err := newMigrator(db, sourceURL, dbName)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	slog.Info("Migrationen zurückgenommen", slog.Int("steps", steps))
	return nil
}

// MigrationVersion liefert die aktuelle Schema-Version. ok ist false, solange keine Migration lief.
func MigrationVersion(db *sql.DB, sourceURL, dbName string) (version uint, dirty bool, ok bool, err error) {
	m, err := newMigrator(db, sourceURL, dbName)
	if err != nil {
		return 0, false, false, err
	}
	version, dirty, err = m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, false, nil
		}
		return 0, false, false, err
	}
	return version, dirty, true, nil
}
