package http

import (
	"net/http"
	"time"

	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/logger"
)

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(token string) (auth.Claims, error)
}

// requireAuth rejects requests without a valid bearer token and stores the claims in the context.
func requireAuth(a Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		claims, err := a.Authenticate(raw)
		if err != nil {
			respondError(w, err)
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// requireTeacher must run inside requireAuth.
func requireTeacher(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok || claims.Role != domain.RoleTeacher {
			respondError(w, domain.ErrForbidden)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request. Websocket upgrades keep the raw writer.
func logRequests(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if r.Header.Get("Upgrade") != "" {
			log.Debug("websocket request", "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
