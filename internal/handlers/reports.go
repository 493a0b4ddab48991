package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/policy"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/store"
	"wastewatch-backend/pkg/utils"
)

func toReportResponses(reports []models.Report) []models.ReportResponse {
	out := make([]models.ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, reports[i].ToReportResponse())
	}
	return out
}

// CreateReport files a report. Citizens may leave creatorId empty; it
// defaults to the caller.
func CreateReport(reports *services.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		var req models.CreateReportRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Normalize()
		if req.CreatorID == "" && claims.Role == models.RoleCitizen {
			req.CreatorID = claims.UserID
		}

		if !policy.Permit(subject(claims), policy.ActionCreateReport, policy.Resource{OwnerID: req.CreatorID}) {
			deny(w, policy.ActionCreateReport)
			return
		}

		report, err := reports.Create(r.Context(), req)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, report.ToReportResponse())
	}
}

// ListReports returns reports filtered by ?userId= and ?status=, newest first.
// Citizens only see their own reports; workers never see resolved ones.
func ListReports(reports *services.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.ReportFilter{UserID: strings.TrimSpace(firstNonEmpty(q.Get("userId"), q.Get("user_id")))}
		if raw := strings.TrimSpace(q.Get("status")); raw != "" {
			status, ok := models.ParseReportStatus(raw)
			if !ok {
				utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "unknown status "+raw)
				return
			}
			filter.Status = status
		}

		switch claims.Role {
		case models.RoleCitizen:
			if filter.UserID == "" {
				filter.UserID = claims.UserID
			}
		case models.RoleWorker:
			if filter.Status == "" {
				filter.ExcludeStatus = models.ReportStatusResolved
			}
		}

		res := policy.Resource{OwnerID: filter.UserID, Status: filter.Status}
		if !policy.Permit(subject(claims), policy.ActionReadReport, res) {
			deny(w, policy.ActionReadReport)
			return
		}

		list, err := reports.List(r.Context(), filter)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, toReportResponses(list))
	}
}

func GetReport(reports *services.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		report, err := reports.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		res := policy.Resource{OwnerID: report.UserID, Status: report.Status}
		if !policy.Permit(subject(claims), policy.ActionReadReport, res) {
			deny(w, policy.ActionReadReport)
			return
		}
		utils.Success(w, report.ToReportResponse())
	}
}

// UpdateReportStatus advances a report. Workers act as themselves; admins
// may name the worker.
func UpdateReportStatus(reports *services.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authorize(w, r, policy.ActionUpdateReportStatus, policy.Resource{})
		if !ok {
			return
		}

		var req models.UpdateReportStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Normalize()

		if claims.Role == models.RoleWorker {
			if req.WorkerID == "" {
				req.WorkerID = claims.UserID
			}
			if req.WorkerID != claims.UserID {
				utils.RespondError(w, http.StatusForbidden, apperrors.KindUnauthorized, "workers may only act as themselves")
				return
			}
		}

		report, err := reports.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.WorkerID)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, report.ToReportResponse())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
