package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"siteops-backend/pkg/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// TokenTTL is how long an issued login token stays valid
const TokenTTL = 7 * 24 * time.Hour

var ErrSecretNotConfigured = errors.New("JWT secret not configured")

type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func jwtSecret() (string, error) {
	secret := os.Getenv("APP_JWT_SECRET")
	if secret == "" {
		return "", ErrSecretNotConfigured
	}
	return secret, nil
}

// IssueToken signs an HS256 token carrying the user's claims
func IssueToken(claims UserClaims) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"name":    claims.Name,
		"role":    claims.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token string and returns its claims
func ParseToken(tokenString string) (UserClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return UserClaims{}, err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return UserClaims{}, err
	}
	if !token.Valid {
		return UserClaims{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, jwt.ErrTokenInvalidClaims
	}

	userClaims := UserClaims{}
	userClaims.UserID, _ = claims["user_id"].(string)
	userClaims.Email, _ = claims["email"].(string)
	userClaims.Name, _ = claims["name"].(string)
	userClaims.Role, _ = claims["role"].(string)
	if userClaims.UserID == "" || userClaims.Role == "" {
		return UserClaims{}, jwt.ErrTokenInvalidClaims
	}
	return userClaims, nil
}

// Auth middleware validates JWT token and adds user claims to context
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Printf("❌ No authorization header: %s %s", r.Method, r.URL.Path)
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Printf("❌ Invalid authorization header format (parts: %d)", len(parts))
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userClaims, err := ParseToken(parts[1])
		if errors.Is(err, ErrSecretNotConfigured) {
			log.Println("❌ JWT secret not configured")
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err != nil {
			log.Printf("❌ Invalid token: %v", err)
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userClaims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole middleware checks the user has one of roles (must be used after Auth)
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := GetUserFromContext(r)
			if !ok {
				log.Println("❌ User claims not found in context")
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			for _, role := range roles {
				if userClaims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Printf("❌ Insufficient permissions: required %v, got %s", roles, userClaims.Role)
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}

// WithUser returns a copy of r carrying claims, as Auth would set them
func WithUser(r *http.Request, claims UserClaims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
}
