package handlers

import (
	"log"
	"net/http"

	"siteops-backend/internal/middleware"
	"siteops-backend/internal/models"
	"siteops-backend/internal/services"
	"siteops-backend/pkg/utils"
)

func actorName(r *http.Request) string {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		return "System"
	}
	if claims.Name != "" {
		return claims.Name
	}
	return claims.Email
}

// ListTasks applies the task screen filters. Operators only see their own tasks.
// GET /api/tasks?search=&status=&priority=
func ListTasks(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		q := r.URL.Query()

		tasks, err := svc.List(r.Context(), services.TaskFilter{
			Role:     claims.Role,
			UserName: claims.Name,
			Search:   q.Get("search"),
			Status:   models.TaskStatus(q.Get("status")),
			Priority: models.TaskPriority(q.Get("priority")),
		})
		if err != nil {
			respondStoreError(w, err, "tasks")
			return
		}
		utils.RespondJSON(w, http.StatusOK, tasks)
	}
}

// GET /api/tasks/{id}
func GetTask(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}
		task, err := svc.Get(r.Context(), id)
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}
		utils.RespondJSON(w, http.StatusOK, task)
	}
}

// POST /api/tasks
func CreateTask(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in services.TaskInput
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := svc.Create(r.Context(), in, actorName(r))
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}

		log.Printf("✅ Task #%d created: %s", task.ID, task.Title)
		utils.RespondJSON(w, http.StatusCreated, task)
	}
}

// PATCH /api/tasks/{id}
func UpdateTask(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}

		var in services.TaskInput
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := svc.Update(r.Context(), id, in, actorName(r))
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}
		utils.RespondJSON(w, http.StatusOK, task)
	}
}

// DELETE /api/tasks/{id}
func DeleteTask(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			respondStoreError(w, err, "task")
			return
		}

		log.Printf("🗑️  Task #%d deleted", id)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"id":      id,
		})
	}
}

// ChangeTaskStatus moves a task to another status
// POST /api/tasks/{id}/status
func ChangeTaskStatus(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}

		var req struct {
			Status models.TaskStatus `json:"status"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := svc.ChangeStatus(r.Context(), id, req.Status, actorName(r))
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}
		utils.RespondJSON(w, http.StatusOK, task)
	}
}

// POST /api/tasks/{id}/reassign
func ReassignTask(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}

		var req struct {
			Operator string `json:"operator"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		task, err := svc.Reassign(r.Context(), id, req.Operator, actorName(r))
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}
		utils.RespondJSON(w, http.StatusOK, task)
	}
}

// POST /api/tasks/{id}/progress
func UpdateTaskProgress(svc *services.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(r, "id")
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid task id")
			return
		}

		var req struct {
			Progress *int   `json:"progress"`
			Notes    string `json:"notes"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Progress == nil {
			utils.RespondError(w, http.StatusBadRequest, "progress is required")
			return
		}

		task, err := svc.UpdateProgress(r.Context(), id, *req.Progress, req.Notes, actorName(r))
		if err != nil {
			respondStoreError(w, err, "task")
			return
		}
		utils.RespondJSON(w, http.StatusOK, task)
	}
}
