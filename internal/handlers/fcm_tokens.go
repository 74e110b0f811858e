package handlers

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"

	"siteops-backend/internal/database"
	"siteops-backend/internal/middleware"
	"siteops-backend/pkg/utils"
)

// RegisterFCMToken stores a push token for the calling user
// POST /api/me/fcm-token
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		switch req.DeviceType {
		case "ios", "android", "web":
		default:
			utils.RespondError(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'web')")
			return
		}

		if err := database.UpsertFCMToken(r.Context(), db, userClaims.UserID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Printf("✅ FCM token registered for %s (%s)", userClaims.Email, req.DeviceType)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}

// DeleteFCMToken removes a push token of the calling user
// DELETE /api/me/fcm-token
func DeleteFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Token string `json:"token"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil || req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}

		deleted, err := database.DeleteFCMToken(r.Context(), db, userClaims.UserID, req.Token)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete FCM token")
			return
		}
		if !deleted {
			utils.RespondError(w, http.StatusNotFound, "Token not found")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
