package middleware

import (
	"context"
	"net"
	"net/http"
)

type metaContextKey string

const RequestMetaContextKey metaContextKey = "requestMeta"

// RequestMeta hält Angaben zur Anfragequelle für Logeinträge.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// RequestMetaContext legt die Quell-IP (nach chi RealIP) und den User-Agent in den Kontext.
func RequestMetaContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		data := RequestMeta{
			IPAddress: ip,
			UserAgent: r.UserAgent(),
		}

		ctx := context.WithValue(r.Context(), RequestMetaContextKey, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	data, ok := ctx.Value(RequestMetaContextKey).(RequestMeta)
	return data, ok
}
