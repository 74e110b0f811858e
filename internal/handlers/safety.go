package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"siteops-backend/internal/safety"
	"siteops-backend/pkg/utils"
)

func respondAlertError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, safety.ErrAlertNotFound):
		utils.RespondError(w, http.StatusNotFound, "Alert not found")
	case errors.Is(err, safety.ErrNoEmergencyAction):
		utils.RespondError(w, http.StatusBadRequest, "Alert has no emergency action")
	default:
		log.Printf("❌ Safety action failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Safety action failed")
	}
}

// GET /api/safety/config
func SafetyConfig(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := m.Config()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"intervalSeconds": cfg.Interval.Seconds(),
			"config":          cfg,
		})
	}
}

// GET /api/safety/status
func SafetyStatus(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, m.Status())
	}
}

// StartMonitoring turns periodic checks on. The ticker outlives the request,
// so it runs under the server context.
// POST /api/safety/monitoring/start
func StartMonitoring(appCtx context.Context, m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := m.Start(appCtx)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"monitoring": true,
			"changed":    started,
		})
	}
}

// POST /api/safety/monitoring/stop
func StopMonitoring(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stopped := m.Stop()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"monitoring": false,
			"changed":    stopped,
		})
	}
}

// CheckNow runs one evaluation immediately
// POST /api/safety/check
func CheckNow(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := m.Tick(r.Context())
		if err != nil {
			log.Printf("❌ Safety check failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Safety check failed")
			return
		}
		utils.RespondJSON(w, http.StatusOK, result)
	}
}

// GET /api/safety/alerts
func ListAlerts(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, m.Alerts())
	}
}

// DELETE /api/safety/alerts/{id}
func DismissAlert(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, err := m.Dismiss(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondAlertError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"alert":   alert,
		})
	}
}

// DELETE /api/safety/alerts
func ClearAlerts(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleared := m.ClearAll()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"cleared": cleared,
		})
	}
}

// POST /api/safety/alerts/{id}/emergency
func EmergencyStop(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := m.EmergencyStop(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondAlertError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"response": resp,
		})
	}
}

// POST /api/safety/alerts/{id}/move-to-safety
func MoveToSafety(m *safety.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, err := m.MoveToSafety(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondAlertError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"operator": op,
		})
	}
}
