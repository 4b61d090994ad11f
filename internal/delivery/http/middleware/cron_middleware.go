package middleware

import (
	"crypto/subtle"
	"net/http"

	"clinic-booking/pkg/response"
)

// CronMiddleware guards scheduler-triggered endpoints with a shared secret
// sent as a Bearer token or in X-Cron-Secret.
type CronMiddleware struct {
	secret string
}

func NewCronMiddleware(secret string) *CronMiddleware {
	return &CronMiddleware{secret: secret}
}

func (m *CronMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			response.Forbidden(w, "Cron endpoint is disabled")
			return
		}

		provided := r.Header.Get("X-Cron-Secret")
		if token, ok := bearerToken(r); ok {
			provided = token
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.secret)) != 1 {
			response.Unauthorized(w, "Invalid cron secret")
			return
		}

		next.ServeHTTP(w, r)
	})
}
