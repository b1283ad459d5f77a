package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Gatekeeper lässt nur Anfragen von den angegebenen IPs durch (z.B. für /metrics).
func Gatekeeper(allowedIPs []string) func(next http.Handler) http.Handler {
	ipMap := make(map[string]struct{})
	for _, ip := range allowedIPs {
		ipMap[strings.TrimSpace(ip)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				remoteIP = r.RemoteAddr
			}

			if _, ok := ipMap[remoteIP]; !ok {
				slog.WarnContext(ctx, "Zugriff von nicht erlaubter IP blockiert",
					slog.String("remote_ip", remoteIP),
					slog.String("path", r.URL.Path),
				)
				writeError(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
