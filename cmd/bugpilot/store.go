package main

import (
	"bugpilot/internal/config"
	"bugpilot/internal/database"
	"bugpilot/internal/database/memory"
	"bugpilot/internal/server"
	"context"
	"fmt"
	"log/slog"
)

// store bündelt die Repositories des gewählten STORE_DRIVER.
type store struct {
	Users    database.UserRepository
	Projects database.ProjectRepository
	Tickets  database.TicketRepository
	OTPs     database.OTPRepository
	Pinger   database.DBPinger
	Closers  []server.Closer
}

func openStore(cfg *config.Config, databaseURL string) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		db, err := memory.New()
		if err != nil {
			return nil, err
		}
		slog.Warn("In-Memory-Store aktiv, Daten gehen beim Neustart verloren")
		return &store{
			Users:    db,
			Projects: db,
			Tickets:  db,
			OTPs:     db,
			Pinger:   db,
			Closers:  []server.Closer{{Name: "memory", Close: func(context.Context) error { return db.Close() }}},
		}, nil

	case config.StoreDriverMySQL:
		db, err := database.ConnectDB(databaseURL)
		if err != nil {
			return nil, err
		}
		dbName, err := database.DatabaseName(databaseURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := database.RunMigrations(db.DB.DB, cfg.MigrationsPath, dbName); err != nil {
			db.Close()
			return nil, fmt.Errorf("fehler bei der Datenbank-Migration: %w", err)
		}
		return &store{
			Users:    database.NewUserRepository(db),
			Projects: database.NewProjectRepository(db),
			Tickets:  database.NewTicketRepository(db),
			OTPs:     database.NewOTPRepository(db),
			Pinger:   db,
			Closers:  []server.Closer{{Name: "mysql", Close: func(context.Context) error { return db.Close() }}},
		}, nil
	}
	return nil, fmt.Errorf("unbekannter STORE_DRIVER '%s'", cfg.StoreDriver)
}

// useRedisOTPs ersetzt den OTP-Speicher durch Redis, wenn REDIS_ADDR gesetzt ist.
func (s *store) useRedisOTPs(addr string) error {
	if addr == "" {
		return nil
	}
	client, err := database.NewRedisClient(addr)
	if err != nil {
		return err
	}
	s.OTPs = database.NewRedisOTPRepository(client)
	s.Closers = append(s.Closers, server.Closer{Name: "redis", Close: func(context.Context) error { return client.Close() }})
	slog.Info("OTP-Codes werden in Redis gespeichert", slog.String("address", addr))
	return nil
}
