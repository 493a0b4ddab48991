package models

import (
	"strings"
	"time"

	apperrors "wastewatch-backend/internal/errors"
)

// ReportStatus is a step in the report lifecycle. Steps only move forward.
type ReportStatus string

const (
	ReportStatusReported   ReportStatus = "reported"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusResolved   ReportStatus = "resolved"
)

// ParseReportStatus returns the status named by s.
func ParseReportStatus(s string) (ReportStatus, bool) {
	status := ReportStatus(strings.ToLower(strings.TrimSpace(s)))
	if status.rank() < 0 {
		return "", false
	}
	return status, true
}

// rank is the position of s in the lifecycle, or -1 for unknown values.
func (s ReportStatus) rank() int {
	switch s {
	case ReportStatusReported:
		return 0
	case ReportStatusInProgress:
		return 1
	case ReportStatusResolved:
		return 2
	default:
		return -1
	}
}

// WasteType tags what kind of waste a report or bin is about.
type WasteType string

const (
	WasteGeneral    WasteType = "general"
	WasteRecyclable WasteType = "recyclable"
	WasteHazardous  WasteType = "hazardous"
	WasteOrganic    WasteType = "organic"
	WasteEWaste     WasteType = "e_waste"
	WasteBulk       WasteType = "bulk"
	WasteLandfill   WasteType = "landfill"
)

// ParseWasteType returns the waste type named by s.
func ParseWasteType(s string) (WasteType, bool) {
	switch t := WasteType(strings.ToLower(strings.TrimSpace(s))); t {
	case WasteGeneral, WasteRecyclable, WasteHazardous, WasteOrganic, WasteEWaste, WasteBulk, WasteLandfill:
		return t, true
	default:
		return "", false
	}
}

// Report is a citizen-submitted waste issue. Reports are never deleted.
type Report struct {
	ID             string       `json:"id" db:"id" bson:"_id"`
	UserID         string       `json:"user_id" db:"user_id" bson:"user_id"`
	Title          string       `json:"title" db:"title" bson:"title"`
	Description    string       `json:"description" db:"description" bson:"description"`
	WasteType      WasteType    `json:"waste_type" db:"waste_type" bson:"waste_type"`
	Location       string       `json:"location" db:"location" bson:"location"`
	Latitude       *float64     `json:"latitude,omitempty" db:"latitude" bson:"latitude,omitempty"`
	Longitude      *float64     `json:"longitude,omitempty" db:"longitude" bson:"longitude,omitempty"`
	ImageURL       *string      `json:"image_url,omitempty" db:"image_url" bson:"image_url,omitempty"`
	Status         ReportStatus `json:"status" db:"status" bson:"status"`
	AssignedWorker *string      `json:"assigned_worker,omitempty" db:"assigned_worker" bson:"assigned_worker,omitempty"`
	CreatedAt      int64        `json:"created_at" db:"created_at" bson:"created_at"`       // Unix timestamp
	UpdatedAt      int64        `json:"updated_at" db:"updated_at" bson:"updated_at"`       // Unix timestamp
	ResolvedAt     *int64       `json:"resolved_at,omitempty" db:"resolved_at" bson:"resolved_at,omitempty"` // Unix timestamp
	Version        int64        `json:"-" db:"version" bson:"version"`
	// Seq breaks created_at ties in document stores. Postgres keeps its own column.
	Seq            int64        `json:"-" db:"-" bson:"seq"`
}

// Transition applies a status change requested by workerID and returns the
// updated copy. changed is false when the request is an idempotent repeat.
func (r Report) Transition(next ReportStatus, workerID string, now time.Time) (updated Report, changed bool, err error) {
	cur, nxt := r.Status.rank(), next.rank()
	if nxt < 0 {
		return r, false, apperrors.Newf(apperrors.KindValidation, "unknown status %q", next)
	}
	if nxt < cur {
		return r, false, apperrors.Newf(apperrors.KindInvalidTransition, "cannot move report from %s back to %s", r.Status, next)
	}

	workerID = strings.TrimSpace(workerID)
	assigned := ""
	if r.AssignedWorker != nil {
		assigned = *r.AssignedWorker
	}

	if nxt == cur {
		if next == ReportStatusInProgress {
			if workerID == "" {
				return r, false, apperrors.New(apperrors.KindValidation, "workerId is required to start work on a report")
			}
			if assigned == workerID {
				return r, false, nil
			}
			return r, false, apperrors.Newf(apperrors.KindAlreadyAssigned, "report is already assigned to worker %s", assigned)
		}
		return r, false, apperrors.Newf(apperrors.KindInvalidTransition, "report is already %s", r.Status)
	}
	if nxt > cur+1 {
		return r, false, apperrors.Newf(apperrors.KindInvalidTransition, "cannot move report from %s to %s without passing through in_progress", r.Status, next)
	}

	switch next {
	case ReportStatusInProgress:
		if workerID == "" {
			return r, false, apperrors.New(apperrors.KindValidation, "workerId is required to start work on a report")
		}
		if assigned != "" && assigned != workerID {
			return r, false, apperrors.Newf(apperrors.KindAlreadyAssigned, "report is already assigned to worker %s", assigned)
		}
		r.AssignedWorker = &workerID
	case ReportStatusResolved:
		if assigned != "" && workerID != "" && assigned != workerID {
			return r, false, apperrors.Newf(apperrors.KindAlreadyAssigned, "report is assigned to worker %s", assigned)
		}
		if assigned == "" && workerID != "" {
			r.AssignedWorker = &workerID
		}
		resolvedAt := now.Unix()
		r.ResolvedAt = &resolvedAt
	}

	r.Status = next
	r.UpdatedAt = now.Unix()
	return r, true, nil
}

// ReportResponse is what we send to the client with ISO timestamps
type ReportResponse struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	WasteType      WasteType    `json:"waste_type"`
	Location       string       `json:"location"`
	Latitude       *float64     `json:"latitude,omitempty"`
	Longitude      *float64     `json:"longitude,omitempty"`
	ImageURL       *string      `json:"image_url,omitempty"`
	Status         ReportStatus `json:"status"`
	AssignedWorker *string      `json:"assigned_worker,omitempty"`
	CreatedAt      string       `json:"created_at"`
	UpdatedAt      string       `json:"updated_at"`
	ResolvedAt     *string      `json:"resolved_at,omitempty"`
}

func (r *Report) ToReportResponse() ReportResponse {
	resp := ReportResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		Title:          r.Title,
		Description:    r.Description,
		WasteType:      r.WasteType,
		Location:       r.Location,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		ImageURL:       r.ImageURL,
		Status:         r.Status,
		AssignedWorker: r.AssignedWorker,
		CreatedAt:      isoTime(r.CreatedAt),
		UpdatedAt:      isoTime(r.UpdatedAt),
	}
	if r.ResolvedAt != nil {
		iso := isoTime(*r.ResolvedAt)
		resp.ResolvedAt = &iso
	}
	return resp
}

func isoTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// CreateReportRequest is the request body for POST /api/reports.
// Both camelCase and the older snake_case field names are accepted.
type CreateReportRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=2000"`
	WasteType   string   `json:"wasteType" validate:"required,oneof=general recyclable hazardous organic e_waste bulk landfill"`
	Location    string   `json:"location" validate:"required,max=300"`
	CreatorID   string   `json:"creatorId" validate:"required"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	ImageURL    *string  `json:"imageUrl,omitempty" validate:"omitempty,url"`

	WasteTypeSnake string  `json:"waste_type,omitempty" validate:"-"`
	UserIDSnake    string  `json:"user_id,omitempty" validate:"-"`
	ImageURLSnake  *string `json:"image_url,omitempty" validate:"-"`
}

// Normalize folds snake_case aliases into the canonical fields and trims input.
func (r *CreateReportRequest) Normalize() {
	if r.WasteType == "" {
		r.WasteType = r.WasteTypeSnake
	}
	if r.CreatorID == "" {
		r.CreatorID = r.UserIDSnake
	}
	if r.ImageURL == nil {
		r.ImageURL = r.ImageURLSnake
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.CreatorID = strings.TrimSpace(r.CreatorID)
	r.WasteType = strings.ToLower(strings.TrimSpace(r.WasteType))
	if r.ImageURL != nil && strings.TrimSpace(*r.ImageURL) == "" {
		r.ImageURL = nil
	}
}

// UpdateReportStatusRequest is the request body for PUT /api/reports/{id}/status
type UpdateReportStatusRequest struct {
	Status        string `json:"status"`
	WorkerID      string `json:"workerId"`
	WorkerIDSnake string `json:"worker_id,omitempty"`
}

func (r *UpdateReportStatusRequest) Normalize() {
	if r.WorkerID == "" {
		r.WorkerID = r.WorkerIDSnake
	}
	r.Status = strings.TrimSpace(r.Status)
	r.WorkerID = strings.TrimSpace(r.WorkerID)
}
