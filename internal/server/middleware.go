package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/Twe-ux/arc-messenger/internal/inbox"
	"github.com/Twe-ux/arc-messenger/internal/logging"
)

type contextKey string

const (
	userEmailKey contextKey = "userEmail"
	inboxKey     contextKey = "inboxService"
)

// SessionClaims is the JWT payload issued to signed-in users.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// userEmailFrom returns the authenticated user's email from the request
// context, empty when the request is anonymous.
func userEmailFrom(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}

// inboxFrom returns the per-request inbox service attached by withInbox.
func inboxFrom(ctx context.Context) InboxService {
	svc, _ := ctx.Value(inboxKey).(InboxService)
	return svc
}

// parseSessionToken validates a bearer token and extracts the user email.
func parseSessionToken(tokenString, secret string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Email == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Email, nil
}

// requireSession authenticates the request via the Authorization bearer
// JWT and stores the user email in the context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Unauthorized - Please sign in", nil)
			return
		}

		email, err := parseSessionToken(strings.TrimPrefix(header, "Bearer "), s.cfg.JWTSecret)
		if err != nil {
			s.logger.Debug("session rejected", logging.Err(err))
			writeError(w, http.StatusUnauthorized, "Unauthorized - Please sign in", nil)
			return
		}

		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withInbox builds the per-request inbox service for the session user.
// Runs inside requireSession.
func (s *Server) withInbox(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := userEmailFrom(r.Context())

		svc, err := s.services.For(r.Context(), email)
		if err != nil {
			switch {
			case errors.Is(err, inbox.ErrNotAuthenticated):
				writeError(w, http.StatusUnauthorized, "Unauthorized - Please sign in", nil)
			default:
				s.logger.Warn("gmail integration unavailable",
					logging.UserHash(email), logging.Err(err))
				writeError(w, http.StatusServiceUnavailable, "Gmail integration unavailable", nil)
			}
			return
		}

		ctx := context.WithValue(r.Context(), inboxKey, svc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ipRateLimiter tracks one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	l := &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
	go l.cleanup()
	return l
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// cleanup periodically drops idle buckets so the map cannot grow without
// bound.
func (l *ipRateLimiter) cleanup() {
	for range time.Tick(10 * time.Minute) {
		l.mu.Lock()
		for ip, limiter := range l.limiters {
			if limiter.Tokens() >= float64(l.burst) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// middleware rejects requests over the per-IP budget with 429.
func (l *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
