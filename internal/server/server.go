package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Closer wird beim Herunterfahren in der angegebenen Reihenfolge aufgerufen.
type Closer struct {
	Name  string
	Close func(ctx context.Context) error
}

func NewServer(port string, handler http.Handler) *http.Server {
	addr := fmt.Sprintf(":%s", port)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Screenshot-Uploads bis 10 MiB
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func StartAndShutdown(srv *http.Server, closers ...Closer) {
	// Starten
	go func() {
		slog.Info("BugPilot startet...", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Fehler beim Starten des Servers", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Warten auf Signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Fahre Server herunter (Graceful Shutdown)...")

	Shutdown(srv, 10*time.Second, closers...)
}

// Shutdown beendet den Server und ruft danach alle Closer auf, auch wenn einer davon fehlschlägt.
func Shutdown(srv *http.Server, timeout time.Duration, closers ...Closer) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Fehler beim Graceful Shutdown des Servers", slog.Any("error", err))
	}

	for _, c := range closers {
		if err := c.Close(ctx); err != nil {
			slog.Error("Fehler beim Schließen einer Ressource", slog.String("resource", c.Name), slog.Any("error", err))
		}
	}

	slog.Info("Server erfolgreich heruntergefahren.")
}
