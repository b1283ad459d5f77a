package main

import (
	"bugpilot/internal/accounts"
	"bugpilot/internal/auth"
	"bugpilot/internal/config"
	"bugpilot/internal/mail"
	"bugpilot/internal/projects"
	"bugpilot/internal/router"
	"bugpilot/internal/server"
	"bugpilot/internal/storage"
	"bugpilot/internal/telemetry"
	"bugpilot/internal/tickets"
	"bugpilot/internal/users"
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Startet den HTTP-Server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	// 1. Secrets & Store
	secrets, err := auth.LoadSecrets(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, secrets.DatabaseURL)
	if err != nil {
		return err
	}
	if err := st.useRedisOTPs(cfg.RedisAddr); err != nil {
		return err
	}

	var closers []server.Closer
	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, "bugpilot", os.Stderr)
		if err != nil {
			return err
		}
		closers = append(closers, server.Closer{Name: "tracer", Close: shutdownTracer})
	}

	// 2. Services
	fileStore, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}
	janitor := storage.NewJanitor(fileStore)
	auth.PasswordCost = cfg.BcryptCost

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		})
	}

	directory := users.NewDirectory(st.Users, st.Projects)
	deps := router.HandlerDependencies{
		UserRepo:           st.Users,
		DBPinger:           st.Pinger,
		PublicKey:          secrets.PublicKey,
		Accounts:           accounts.NewService(st.Users, st.OTPs, mailer, secrets.PrivateKey, cfg.JWTTokenTTL, cfg.OTPTTL),
		Projects:           projects.NewService(st.Projects, directory),
		Tickets:            tickets.NewService(st.Tickets, st.Projects, directory, fileStore, janitor),
		Directory:          directory,
		UploadDir:          fileStore.Dir(),
		MetricsAllowedIPs:  cfg.MetricsAllowedIPs,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TracingEnabled:     cfg.TracingEnabled,
	}

	// 3. Router & Server
	srv := server.NewServer(cfg.Port, router.SetupRouter(deps))

	// Laufende Bereinigungen abwarten, dann Tracer und Verbindungen schließen
	closers = append([]server.Closer{{Name: "janitor", Close: janitor.Wait}}, closers...)
	closers = append(closers, st.Closers...)

	slog.Info("Konfiguration geladen",
		slog.String("store", cfg.StoreDriver),
		slog.Bool("vault", cfg.UseVault()),
		slog.Bool("redis", cfg.RedisAddr != ""),
		slog.Bool("smtp", cfg.SMTPHost != ""),
		slog.Bool("tracing", cfg.TracingEnabled),
	)
	server.StartAndShutdown(srv, closers...)
	return nil
}
