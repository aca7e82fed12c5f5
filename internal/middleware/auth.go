package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
)

type contextKey string

const UserIDKey contextKey = "userID"

// AnonymousUserID is used for unauthenticated requests in development when
// no JWT secret is configured.
const AnonymousUserID = "anonymous"

// AuthMiddleware validates HS256 bearer tokens signed with cfg.JWTSecret and
// puts the sub claim into the request context. When cfg.JWTIssuer is set the
// iss claim must match it.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.JWTSecret == "" && cfg.Env == "development" {
				ctx := context.WithValue(r.Context(), UserIDKey, AnonymousUserID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, r, "invalid Authorization header format")
				return
			}

			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
			if cfg.JWTIssuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			}, opts...)
			if err != nil || !token.Valid {
				unauthorized(w, r, "invalid token")
				return
			}

			userID, err := token.Claims.GetSubject()
			if err != nil || userID == "" {
				unauthorized(w, r, "missing sub claim")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Debug("Rejected request", "path", r.URL.Path, "reason", reason)
	err := apperrors.NewUnauthorizedError(reason)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": apperrors.Localize(err, r.Header.Get("Accept-Language")),
		"code":  err.Code(),
	})
}

// GetUserID extracts the user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// RequireAuth is a helper that returns 401 if no user ID in context
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			unauthorized(w, r, "no user")
			return
		}
		next.ServeHTTP(w, r)
	})
}
