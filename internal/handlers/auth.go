package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"siteops-backend/internal/middleware"
	"siteops-backend/internal/models"
	"siteops-backend/pkg/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool                 `json:"success"`
	Token   string               `json:"token,omitempty"`
	User    *models.UserResponse `json:"user,omitempty"`
}

// Login checks credentials and issues a 7-day token
// POST /api/auth/login
func Login(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		var user models.User
		query := db.Rebind("SELECT * FROM users WHERE email = ?")
		if err := db.GetContext(r.Context(), &user, query, req.Email); err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := middleware.IssueToken(middleware.UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   user.Role,
		})
		if errors.Is(err, middleware.ErrSecretNotConfigured) {
			log.Println("❌ JWT secret not configured")
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		utils.RespondJSON(w, http.StatusOK, LoginResponse{
			Success: true,
			Token:   token,
			User:    &userResponse,
		})
	}
}

// AuthStatus echoes the claims of the calling token
// GET /api/auth/status
func AuthStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"authenticated": true,
			"user":          claims,
		})
	}
}
