package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/policy"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/store"
	"wastewatch-backend/pkg/utils"
)

func toDriverResponses(drivers []models.Driver) []models.DriverResponse {
	out := make([]models.DriverResponse, 0, len(drivers))
	for i := range drivers {
		out = append(out, drivers[i].ToDriverResponse())
	}
	return out
}

// GetDrivers returns drivers ordered by name, filtered by ?available= and ?shift=
func GetDrivers(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionReadDrivers, policy.Resource{}); !ok {
			return
		}

		q := r.URL.Query()
		var filter store.DriverFilter
		if raw := strings.TrimSpace(q.Get("available")); raw != "" {
			available, err := strconv.ParseBool(raw)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "available must be true or false")
				return
			}
			filter.Available = &available
		}
		if raw := strings.TrimSpace(q.Get("shift")); raw != "" {
			shift, ok := models.ParseDriverShift(raw)
			if !ok {
				utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "unknown shift "+raw)
				return
			}
			filter.Shift = shift
		}

		drivers, err := fleet.ListDrivers(r.Context(), filter)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, toDriverResponses(drivers))
	}
}

func CreateDriver(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionWriteDrivers, policy.Resource{}); !ok {
			return
		}

		var req models.CreateDriverRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		driver, err := fleet.CreateDriver(r.Context(), req)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, driver.ToDriverResponse())
	}
}

// AssignDriver puts an available driver on a route
func AssignDriver(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionAssignDriver, policy.Resource{}); !ok {
			return
		}

		var req models.AssignDriverRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Normalize()

		driver, err := fleet.AssignDriver(r.Context(), chi.URLParam(r, "id"), req.RouteID)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, driver.ToDriverResponse())
	}
}

func ReleaseDriver(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionAssignDriver, policy.Resource{}); !ok {
			return
		}

		driver, err := fleet.ReleaseDriver(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, driver.ToDriverResponse())
	}
}
