package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/cache"
	"stockflow/internal/pkg/logger"
)

// RateLimiter é uma janela fixa por IP no Redis. A primeira requisição da janela define o TTL da chave.
// Falha do Redis não derruba a API: a requisição segue e o erro é registrado.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limiter indisponível.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(ctx, key, window); err != nil {
					// Sem TTL o contador nunca zeraria; descarta a janela.
					log.Warn("Falha ao definir janela do rate limiter.", map[string]interface{}{"error": err.Error()})
					if err := client.Delete(ctx, key); err != nil {
						log.Warn("Falha ao descartar janela do rate limiter.", map[string]interface{}{"error": err.Error()})
					}
				}
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				writeError(w, apperror.NewRateLimitedError("tente novamente mais tarde."), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
