package handler

import (
	"context"
	"net"
	"net/http"
	"time"

	"voting-service/internal/config"
	"voting-service/internal/models"
	"voting-service/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// requestMeta extracts the client attributes recorded with sessions and
// security events. RealIP middleware has already normalized RemoteAddr.
func requestMeta(r *http.Request) models.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return models.RequestMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// SessionFromContext returns the resolved session identity, or nil on
// unauthenticated requests.
func SessionFromContext(ctx context.Context) *models.SessionData {
	data, _ := ctx.Value(sessionContextKey).(*models.SessionData)
	return data
}

// SessionMiddleware resolves the session cookie on every request. When the
// session manager rotates the token, the replacement cookie is set on the
// response transparently. Requests without a valid session pass through
// unauthenticated; RequireAuth gates the protected routes.
func SessionMiddleware(auth *service.AuthService, cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.Session.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, rotated, err := auth.Resolve(r.Context(), cookie.Value, requestMeta(r))
			if err != nil {
				// Fail closed: destroy the bad cookie so the client stops
				// replaying it.
				clearSessionCookie(w, cfg)
				next.ServeHTTP(w, r)
				return
			}

			if rotated != "" {
				setSessionCookie(w, cfg, rotated, sess.ExpiresAt)
			}

			data := &models.SessionData{
				SessionID: sess.SessionID,
				UserID:    sess.UserID,
				Email:     sess.Email,
				Role:      sess.Role,
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no resolved session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			respondWithError(w, http.StatusUnauthorized, service.ErrUnauthenticated, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setSessionCookie(w http.ResponseWriter, cfg *config.Config, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Server.EnableTLS,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Server.EnableTLS,
		SameSite: http.SameSiteStrictMode,
	})
}
