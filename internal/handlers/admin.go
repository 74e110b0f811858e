package handlers

import (
	"log"
	"net/http"

	"siteops-backend/internal/safety"
	"siteops-backend/internal/store"
	"siteops-backend/pkg/utils"
)

// ResetData restores every collection to the seed data and clears the alert feed
// POST /api/admin/reset-data
func ResetData(st *store.Store, m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Reset(r.Context()); err != nil {
			log.Printf("❌ Reset failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to reset data")
			return
		}
		cleared := 0
		if m != nil {
			cleared = m.ClearAll()
		}

		log.Println("♻️  Site data reset to defaults")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"message":       "Data reset to defaults",
			"alertsCleared": cleared,
		})
	}
}
