package handlers

import (
	"log"
	"net/http"

	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
	"siteops-backend/internal/websocket"
	"siteops-backend/pkg/utils"
)

// ListMachines returns the machines collection, optionally filtered by status
// GET /api/machines?status=
func ListMachines(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machines, err := st.Machines(r.Context())
		if err != nil {
			respondStoreError(w, err, "machines")
			return
		}

		if status := models.MachineStatus(r.URL.Query().Get("status")); status != "" {
			filtered := []models.Machine{}
			for _, m := range machines {
				if m.Status == status {
					filtered = append(filtered, m)
				}
			}
			machines = filtered
		}

		utils.RespondJSON(w, http.StatusOK, machines)
	}
}

// GET /api/machines/{id}
func GetMachine(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid machine id")
			return
		}
		m, err := st.Machine(r.Context(), id)
		if err != nil {
			respondStoreError(w, err, "machine")
			return
		}
		utils.RespondJSON(w, http.StatusOK, m)
	}
}

// PATCH /api/machines/{id}/location
func UpdateMachineLocation(st *store.Store, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid machine id")
			return
		}

		var req locationRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		coord, ok := req.coordinate()
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "x and y are required")
			return
		}

		m, err := st.UpdateMachineLocation(r.Context(), id, coord)
		if err != nil {
			respondStoreError(w, err, "machine")
			return
		}

		if hub != nil {
			hub.PublishMachineLocation(*m)
		}
		utils.RespondJSON(w, http.StatusOK, m)
	}
}

// PATCH /api/machines/{id}/status
func UpdateMachineStatus(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid machine id")
			return
		}

		var req struct {
			Status models.MachineStatus `json:"status"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !models.ValidMachineStatus(req.Status) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid machine status")
			return
		}

		m, err := st.SetMachineStatus(r.Context(), id, req.Status)
		if err != nil {
			respondStoreError(w, err, "machine")
			return
		}

		log.Printf("🚜 Machine %d (%s) status -> %s", m.ID, m.Model, m.Status)
		utils.RespondJSON(w, http.StatusOK, m)
	}
}
