// Package auth is the boundary that turns a bearer token into the
// user id every engine operation is scoped by. Everything behind it
// receives an already-resolved user id from the request context.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmaqa/rag-engine/internal/config"
)

// Claims carried by an access token. The subject is the caller's user
// id; ids are opaque strings issued by the identity provider, not
// parsed further here.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type JWTMiddleware struct {
	secret    []byte
	devUserID string
}

// NewJWTMiddleware builds the boundary from config. With no JWT secret
// configured, every request is attributed to the configured dev user;
// config.Validate has already guaranteed one of the two is set.
func NewJWTMiddleware(cfg config.AuthConfig) *JWTMiddleware {
	return &JWTMiddleware{
		secret:    []byte(cfg.JWTSecret),
		devUserID: cfg.DevUserID,
	}
}

func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), m.devUserID)))
			return
		}

		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID := claims.Subject
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "token has no subject")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
