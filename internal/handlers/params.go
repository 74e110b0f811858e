package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"siteops-backend/internal/services"
	"siteops-backend/internal/store"
	"siteops-backend/pkg/utils"
)

func intParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// respondStoreError maps store and service sentinels to HTTP statuses
func respondStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, services.ErrInvalidTask):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("❌ %s store error: %v", what, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to access "+what)
	}
}
