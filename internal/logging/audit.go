package logging

import (
	"bugpilot/internal/middleware"
	"context"
	"log/slog"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// LogAccessDenied protokolliert eine abgelehnte Berechtigungsprüfung mit Anfragekontext.
func LogAccessDenied(ctx context.Context, operation string, reason error, details ...slog.Attr) {
	userID := ""
	if id, ok := middleware.GetUserIDFromContext(ctx); ok {
		userID = id.String()
	}

	meta, ok := middleware.GetRequestMetaFromContext(ctx)
	if !ok {
		meta = middleware.RequestMeta{}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("request_id", chimiddleware.GetReqID(ctx)),
		slog.String("source_ip", meta.IPAddress),
		slog.Any("reason", reason),
	}
	attrs = append(attrs, details...)

	slog.LogAttrs(ctx, slog.LevelWarn, "Zugriff verweigert: "+operation, attrs...)
}
