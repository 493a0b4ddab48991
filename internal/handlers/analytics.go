package handlers

import (
	"net/http"

	"wastewatch-backend/internal/policy"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/pkg/utils"
)

// GetAnalyticsOverview returns the dashboard counters, recomputed on every call
func GetAnalyticsOverview(svc *services.AnalyticsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authorize(w, r, policy.ActionReadAnalytics, policy.Resource{}); !ok {
			return
		}

		overview, err := svc.Overview(r.Context())
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, overview)
	}
}
