package handlers

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"siteops-backend/internal/database"
	"siteops-backend/internal/models"
	"siteops-backend/pkg/utils"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "operator", "supervisor" or "admin"
}

// CreateUser creates a new login account
// POST /api/users (admin)
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 REQUEST: POST /api/users - Create new user")

		var req CreateUserRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			log.Printf("❌ Invalid request body: %v", err)
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password, name, and role are required")
			return
		}
		if !models.ValidOperatorRole(models.OperatorRole(req.Role)) {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'operator', 'supervisor', or 'admin'")
			return
		}

		created, err := database.CreateUser(db, database.SeedAccount{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			log.Printf("❌ Database error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
		if !created {
			log.Printf("❌ User already exists: %s", req.Email)
			utils.RespondError(w, http.StatusConflict, "User with this email already exists")
			return
		}

		var user models.User
		if err := db.GetContext(r.Context(), &user, db.Rebind("SELECT * FROM users WHERE email = ?"), req.Email); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}

		log.Printf("✅ USER CREATED: %s (%s)", user.Email, user.Role)
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"user":    user.ToUserResponse(),
			"message": "User created successfully",
		})
	}
}
