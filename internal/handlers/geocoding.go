package handlers

import (
	"log"
	"net/http"
	"strings"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/pkg/utils"
)

// GeocodeRequest represents a request to geocode an address
type GeocodeRequest struct {
	Address string `json:"address"`
}

// Geocode handles POST /api/geocoding/forward. The mobile app uses it to
// place a pin before filing a report.
func Geocode(geocoder services.Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := caller(w, r); !ok {
			return
		}

		var req GeocodeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Address = strings.TrimSpace(req.Address)
		if req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "address is required")
			return
		}

		address, err := geocoder.Geocode(r.Context(), req.Address)
		if err != nil {
			log.Printf("Geocoding failed for %q: %v", req.Address, err)
			utils.RespondError(w, http.StatusNotFound, apperrors.KindNotFound, "address could not be located")
			return
		}
		utils.Success(w, address)
	}
}
