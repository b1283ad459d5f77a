package storage

import (
	"bugpilot/internal/metrics"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
)

// Remover entfernt gespeicherte Dateien.
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// Janitor entfernt Dateien im Hintergrund. Fehler werden nur geloggt.
type Janitor struct {
	remover Remover
	wg      sync.WaitGroup
}

func NewJanitor(remover Remover) *Janitor {
	return &Janitor{remover: remover}
}

// Schedule startet die Bereinigung losgelöst vom Request; ein Abbruch des Requests beendet sie nicht.
func (j *Janitor) Schedule(ctx context.Context, names []string) {
	if len(names) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for _, name := range names {
			j.remove(ctx, name)
		}
	}()
}

func (j *Janitor) remove(ctx context.Context, name string) {
	err := j.remover.Remove(ctx, name)
	switch {
	case err == nil:
		metrics.ScreenshotCleanups.WithLabelValues("removed").Inc()
		slog.DebugContext(ctx, "Screenshot entfernt", slog.String("file", name))
	case errors.Is(err, fs.ErrNotExist):
		metrics.ScreenshotCleanups.WithLabelValues("missing").Inc()
		slog.WarnContext(ctx, "Screenshot war bereits entfernt", slog.String("file", name))
	default:
		metrics.ScreenshotCleanups.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "Fehler beim Entfernen des Screenshots", slog.Any("error", err), slog.String("file", name))
	}
}

// Wait blockiert, bis alle geplanten Bereinigungen beendet sind oder ctx abläuft.
func (j *Janitor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
