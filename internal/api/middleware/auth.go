package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/praxislabs/mastery-api/internal/api/shared"
	"github.com/praxislabs/mastery-api/internal/redact"
)

// RoleAdmin is the role claim value that unlocks trusted-caller operations
// such as the manual pass override.
const RoleAdmin = "admin"

// Token validation errors.
var (
	// ErrInvalidToken indicates a malformed, mis-signed, or claim-invalid token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates a token past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

// AuthMiddleware validates bearer tokens issued by the platform's auth
// service. Token issuance lives elsewhere; this engine only needs the user
// ID from the "sub" claim of an HS256-signed token.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new AuthMiddleware verifying tokens against
// the shared signing secret.
func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	if jwtSecret == "" {
		panic("jwtSecret cannot be empty")
	}
	return &AuthMiddleware{secret: []byte(jwtSecret)}
}

// Authenticate validates the Authorization header and adds the user ID to
// the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		userID, role, err := m.validateToken(parts[1])
		if err != nil {
			switch {
			case errors.Is(err, ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, ErrInvalidToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				slog.Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
		if role != "" {
			ctx = context.WithValue(ctx, shared.UserRoleContextKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken parses and verifies the token and extracts the user ID plus
// the optional role claim.
func (m *AuthMiddleware) validateToken(tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", ErrExpiredToken
		}
		return uuid.Nil, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: subject is not a user ID", ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	return userID, role, nil
}

// GetUserID extracts the authenticated user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetUserRole extracts the authenticated user's role from the request
// context. Tokens without a role claim yield an empty string.
func GetUserRole(r *http.Request) string {
	role, _ := r.Context().Value(shared.UserRoleContextKey).(string)
	return role
}
