package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "github.com/IvaDonGon/TusGastos/internal/log"
)

type contextKey int

const userIDKey contextKey = iota

// AuthConfig controls bearer-token checks on /api/v1.
type AuthConfig struct {
	Secret []byte
	// Skip accepts every request as MockUserID. Local development only.
	Skip       bool
	MockUserID string
}

// IssueToken signs an HS256 token whose subject is userID. ttl <= 0 issues a
// token without expiry.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("empty user id")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies tokenString and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware resolves the caller's user id and stores it in the context.
func (a AuthConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Unauthorized request",
				applog.FieldComponent, applog.ComponentAuth,
				applog.FieldError, err)
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a AuthConfig) authenticate(r *http.Request) (string, error) {
	if a.Skip {
		if a.MockUserID == "" {
			return "", errors.New("auth skip enabled without a mock user")
		}
		return a.MockUserID, nil
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errors.New("missing bearer token")
	}
	return ParseToken(a.Secret, strings.TrimSpace(token))
}

// UserIDFromContext returns the authenticated user id, or "" outside /api/v1.
func UserIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
