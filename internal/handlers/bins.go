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

func toBinResponses(bins []models.Bin) []models.BinResponse {
	out := make([]models.BinResponse, 0, len(bins))
	for i := range bins {
		out = append(out, bins[i].ToBinResponse())
	}
	return out
}

// GetBins returns bins ordered by location, optionally filtered by
// ?wasteType= and ?minLevel=
func GetBins(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionReadBins, policy.Resource{}); !ok {
			return
		}

		q := r.URL.Query()
		var filter store.BinFilter
		if raw := strings.TrimSpace(firstNonEmpty(q.Get("wasteType"), q.Get("waste_type"))); raw != "" {
			wt, ok := models.ParseWasteType(raw)
			if !ok {
				utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "unknown waste type "+raw)
				return
			}
			filter.WasteType = wt
		}
		if raw := strings.TrimSpace(q.Get("minLevel")); raw != "" {
			level, err := strconv.Atoi(raw)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "minLevel must be an integer")
				return
			}
			filter.MinLevel = &level
		}

		bins, err := fleet.ListBins(r.Context(), filter)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, toBinResponses(bins))
	}
}

// GetBinAlerts returns bins at or above the alert fill level
func GetBinAlerts(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionReadBins, policy.Resource{}); !ok {
			return
		}

		bins, err := fleet.Alerts(r.Context())
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, toBinResponses(bins))
	}
}

func CreateBin(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionWriteBins, policy.Resource{}); !ok {
			return
		}

		var req models.CreateBinRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		bin, err := fleet.CreateBin(r.Context(), req)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, bin.ToBinResponse())
	}
}

// CollectBin records a pickup, emptying the bin
func CollectBin(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionWriteBins, policy.Resource{}); !ok {
			return
		}

		bin, err := fleet.RecordCollection(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, bin.ToBinResponse())
	}
}

func UpdateBinLevel(fleet *services.FleetService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionWriteBins, policy.Resource{}); !ok {
			return
		}

		var req models.UpdateFillLevelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Level == nil {
			utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "level is required")
			return
		}

		bin, err := fleet.UpdateFillLevel(r.Context(), chi.URLParam(r, "id"), *req.Level)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, bin.ToBinResponse())
	}
}
