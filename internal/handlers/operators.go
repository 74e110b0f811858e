package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"siteops-backend/internal/middleware"
	"siteops-backend/internal/models"
	"siteops-backend/internal/services"
	"siteops-backend/internal/store"
	"siteops-backend/internal/websocket"
	"siteops-backend/pkg/utils"
)

// ListOperators returns the operators collection
// GET /api/operators
func ListOperators(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operators, err := st.Operators(r.Context())
		if err != nil {
			respondStoreError(w, err, "operators")
			return
		}

		status := models.OperatorStatus(r.URL.Query().Get("status"))
		if status != "" {
			filtered := []models.Operator{}
			for _, op := range operators {
				if op.Status == status {
					filtered = append(filtered, op)
				}
			}
			operators = filtered
		}

		utils.RespondJSON(w, http.StatusOK, operators)
	}
}

// GetOperator returns one operator
// GET /api/operators/{id}
func GetOperator(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid operator id")
			return
		}
		op, err := st.Operator(r.Context(), id)
		if err != nil {
			respondStoreError(w, err, "operator")
			return
		}
		utils.RespondJSON(w, http.StatusOK, op)
	}
}

// CreateOperator adds an operator to the collection
// POST /api/operators
func CreateOperator(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var op models.Operator
		if err := utils.DecodeJSON(r, &op); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		op.Name = strings.TrimSpace(op.Name)
		if op.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "Name is required")
			return
		}
		if op.Role == "" {
			op.Role = models.RoleOperator
		}
		if op.Status == "" {
			op.Status = models.OperatorOffline
		}
		if op.Shift == "" {
			op.Shift = "day"
		}
		if !models.ValidOperatorRole(op.Role) || !models.ValidOperatorStatus(op.Status) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid role or status")
			return
		}

		added, err := st.AddOperator(r.Context(), op)
		if err != nil {
			respondStoreError(w, err, "operators")
			return
		}

		log.Printf("✅ Operator created: %s (id %d)", added.Name, added.ID)
		utils.RespondJSON(w, http.StatusCreated, added)
	}
}

type locationRequest struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Zone string   `json:"zone"`
}

func (req locationRequest) coordinate() (models.Coordinate, bool) {
	if req.X == nil || req.Y == nil {
		return models.Coordinate{}, false
	}
	return models.Coordinate{X: *req.X, Y: *req.Y, Zone: req.Zone}, true
}

// UpdateOperatorLocation moves an operator and tells connected dashboards.
// Operators may only move themselves.
// PATCH /api/operators/{id}/location
func UpdateOperatorLocation(st *store.Store, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid operator id")
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

		claims, _ := middleware.GetUserFromContext(r)
		if claims.Role == string(models.RoleOperator) {
			self, err := st.OperatorByEmail(r.Context(), claims.Email)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				respondStoreError(w, err, "operator")
				return
			}
			if self == nil || self.ID != id {
				log.Printf("❌ %s tried to move operator %d", claims.Email, id)
				utils.RespondError(w, http.StatusForbidden, "Operators can only update their own location")
				return
			}
		}

		op, err := st.UpdateOperatorLocation(r.Context(), id, coord)
		if err != nil {
			respondStoreError(w, err, "operator")
			return
		}

		if hub != nil {
			hub.PublishOperatorLocation(*op)
		}
		utils.RespondJSON(w, http.StatusOK, op)
	}
}

// NearbyTasks lists the tasks closest to an operator
// GET /api/operators/{id}/nearby-tasks?limit=5
func NearbyTasks(st *store.Store, prioritizer *services.TaskPrioritizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, ok := operatorWithLocation(w, r, st)
		if !ok {
			return
		}

		limit := services.DefaultNearbyTaskLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		tasks, err := st.Tasks(r.Context())
		if err != nil {
			respondStoreError(w, err, "tasks")
			return
		}

		utils.RespondJSON(w, http.StatusOK, prioritizer.Nearest(tasks, *op.CurrentLocation, limit))
	}
}

// TaskRoute orders an operator's open tasks into a nearest-neighbour tour
// GET /api/operators/{id}/task-route
func TaskRoute(st *store.Store, prioritizer *services.TaskPrioritizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, ok := operatorWithLocation(w, r, st)
		if !ok {
			return
		}

		tasks, err := st.Tasks(r.Context())
		if err != nil {
			respondStoreError(w, err, "tasks")
			return
		}

		open := []models.Task{}
		for _, t := range tasks {
			if t.AssignedOperator == op.Name && t.Status != models.TaskDone {
				open = append(open, t)
			}
		}

		ordered, total := prioritizer.VisitOrder(open, *op.CurrentLocation)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"operator":      op.Name,
			"tasks":         ordered,
			"totalDistance": total,
		})
	}
}

func operatorWithLocation(w http.ResponseWriter, r *http.Request, st *store.Store) (*models.Operator, bool) {
	id, ok := intParam(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid operator id")
		return nil, false
	}
	op, err := st.Operator(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "operator")
		return nil, false
	}
	if op.CurrentLocation == nil {
		utils.RespondError(w, http.StatusConflict, "Operator has no current location")
		return nil, false
	}
	return op, true
}
