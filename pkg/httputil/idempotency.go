package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyHeader carries the client supplied key
	IdempotencyHeader = "Idempotency-Key"

	idempotencyLockTTL = 30 * time.Second
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the stored response of a POST that was already
// completed with the same Idempotency-Key by the same user. A second request
// arriving while the first is still running gets 409.
//
// Redis failures fail open: the request is served without idempotency.
func Idempotency(rdb *redis.Client, ttl time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := fmt.Sprintf("idemp:%s:%s:%s", r.URL.Path, r.Header.Get("X-User-ID"), key)
			lockKey := cacheKey + ":lock"

			val, err := rdb.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				var cached cachedResponse
				if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(cached.Status)
					w.Write([]byte(cached.Body))
					return
				}
			case err != redis.Nil:
				log.Warn().Err(err).Msg("idempotency lookup failed")
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
			if err != nil {
				log.Warn().Err(err).Msg("idempotency lock failed")
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				Error(w, errors.New("PROCESSING", "a request with this Idempotency-Key is still being processed", http.StatusConflict))
				return
			}
			defer func() {
				if err := rdb.Del(ctx, lockKey).Err(); err != nil {
					log.Warn().Err(err).Msg("idempotency unlock failed")
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}

			payload, err := json.Marshal(cachedResponse{Status: rec.statusCode, Body: rec.body.String()})
			if err != nil {
				return
			}
			if err := rdb.Set(ctx, cacheKey, string(payload), ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("idempotency store failed")
			}
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
