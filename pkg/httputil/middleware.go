package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		// events published while serving the request carry its ID
		ctx = messaging.WithCorrelationID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs one line per request. Server errors log at error level,
// client errors at warn and health probes at debug.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			var ev *zerolog.Event
			switch {
			case wrapped.statusCode >= 500:
				ev = log.Error()
			case wrapped.statusCode >= 400:
				ev = log.Warn()
			case r.URL.Path == "/health":
				ev = log.Debug()
			default:
				ev = log.Info()
			}

			ev.Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("user_id", r.Header.Get("X-User-ID")).
				Str("idempotency_key", r.Header.Get(IdempotencyHeader)).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ActorMiddleware extracts the caller identity from headers set by the
// gateway and adds it to the request context.
//
// Headers expected:
//   - X-User-ID: user UUID
//   - X-User-Role: employee, manager or admin
//   - X-Company-ID: company UUID
//
// Identity is trusted as-is. /health is served without identity.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			Error(w, errors.Unauthorized("missing or invalid X-User-ID"))
			return
		}

		role := actor.Role(r.Header.Get("X-User-Role"))
		if role == "" {
			role = actor.RoleEmployee
		}
		if !role.Valid() {
			Error(w, errors.Unauthorized("invalid X-User-Role"))
			return
		}

		var companyID uuid.UUID
		if raw := r.Header.Get("X-Company-ID"); raw != "" {
			companyID, err = uuid.Parse(raw)
			if err != nil {
				Error(w, errors.Unauthorized("invalid X-Company-ID"))
				return
			}
		}

		a := &actor.Actor{ID: userID, CompanyID: companyID, Role: role}
		next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
	})
}
