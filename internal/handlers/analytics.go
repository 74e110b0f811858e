package handlers

import (
	"log"
	"net/http"

	"siteops-backend/internal/services"
	"siteops-backend/pkg/utils"
)

// GetTaskAnalytics returns the progress dashboard figures
// GET /api/analytics/tasks
func GetTaskAnalytics(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analytics, err := svc.Analytics(r.Context())
		if err != nil {
			log.Printf("❌ Failed to compute task analytics: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to compute analytics")
			return
		}
		utils.RespondJSON(w, http.StatusOK, analytics)
	}
}
