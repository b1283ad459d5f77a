package database

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type DB struct {
	*sqlx.DB
}

func ConnectDB(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL darf nicht leer sein")
	}

	dsn, err := NormalizeDSN(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Verbinden zur Datenbank: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("fehler beim Pingen der Datenbank: %w", err)
	}

	slog.Info("Erfolgreich mit der Datenbank verbunden")
	return &DB{db}, nil
}

func (db *DB) Close() error {
	slog.Info("Schließe Datenbankverbindung...")
	return db.DB.Close()
}

// BuildDSN erzeugt einen MySQL-DSN mit parseTime, damit DATETIME-Spalten als time.Time gescannt werden.
func BuildDSN(user, password, host, port, dbName string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = dbName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// NormalizeDSN erzwingt parseTime und multiStatements auch für frei gesetzte DATABASE_URLs.
// Ein vorangestelltes "mysql://" wird entfernt.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("ungültiger DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

// DatabaseName liest den Datenbanknamen aus einem DSN (für golang-migrate).
func DatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("ungültiger DSN: %w", err)
	}
	return cfg.DBName, nil
}
