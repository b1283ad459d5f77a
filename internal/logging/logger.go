package logging

import (
	"io"
	"log/slog"
)

// NewLogger erzeugt den JSON-Logger des Dienstes.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
