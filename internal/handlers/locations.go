package handlers

import (
	"net/http"
	"strconv"

	"siteops-backend/internal/geo"
	"siteops-backend/internal/store"
	"siteops-backend/pkg/utils"
)

// GET /api/locations
func ListLocations(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locations, err := st.SiteLocations(r.Context())
		if err != nil {
			respondStoreError(w, err, "locations")
			return
		}
		utils.RespondJSON(w, http.StatusOK, locations)
	}
}

// LocationDistance measures how far an operator is from a named site location
// GET /api/locations/distance?operator_id=&location=
func LocationDistance(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := strconv.Atoi(r.URL.Query().Get("operator_id"))
		name := r.URL.Query().Get("location")
		if err != nil || name == "" {
			utils.RespondError(w, http.StatusBadRequest, "operator_id and location are required")
			return
		}

		op, err := st.Operator(r.Context(), operatorID)
		if err != nil {
			respondStoreError(w, err, "operator")
			return
		}
		if op.CurrentLocation == nil {
			utils.RespondError(w, http.StatusConflict, "Operator has no current location")
			return
		}

		locations, err := st.SiteLocations(r.Context())
		if err != nil {
			respondStoreError(w, err, "locations")
			return
		}
		for _, loc := range locations {
			if loc.Name == name {
				utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
					"operator": op.Name,
					"location": loc.Name,
					"distance": geo.Distance(*op.CurrentLocation, loc.Coordinates),
				})
				return
			}
		}
		utils.RespondError(w, http.StatusNotFound, "location not found")
	}
}

// GET /api/incidents
func ListIncidents(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incidents, err := st.SafetyIncidents(r.Context())
		if err != nil {
			respondStoreError(w, err, "incidents")
			return
		}
		utils.RespondJSON(w, http.StatusOK, incidents)
	}
}
