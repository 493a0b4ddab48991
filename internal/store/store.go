// Package store defines the persistence interfaces the services depend on.
// Implementations live in store/memory, database (Postgres) and mongostore.
package store

import (
	"context"
	"errors"

	"wastewatch-backend/internal/models"
)

var (
	// ErrNotFound is returned when no entity has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by conditional updates when the stored
	// version no longer matches the version that was read.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a unique key (user email) is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// ReportFilter narrows ListReports. Zero fields match everything.
type ReportFilter struct {
	UserID string
	Status models.ReportStatus
	// ExcludeStatus drops reports in this status. Used to hide resolved
	// reports from workers.
	ExcludeStatus models.ReportStatus
}

// Matches reports whether r passes the filter.
func (f ReportFilter) Matches(r *models.Report) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && r.Status == f.ExcludeStatus {
		return false
	}
	return true
}

// BinFilter narrows ListBins.
type BinFilter struct {
	WasteType models.WasteType
	MinLevel  *int
}

func (f BinFilter) Matches(b *models.Bin) bool {
	if f.WasteType != "" && b.WasteType != f.WasteType {
		return false
	}
	if f.MinLevel != nil && b.CurrentLevel < *f.MinLevel {
		return false
	}
	return true
}

// DriverFilter narrows ListDrivers.
type DriverFilter struct {
	Available *bool
	Shift     models.DriverShift
}

func (f DriverFilter) Matches(d *models.Driver) bool {
	if f.Available != nil && d.Availability != *f.Available {
		return false
	}
	if f.Shift != "" && d.Shift != f.Shift {
		return false
	}
	return true
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// SetUserPassword stores a password hash only if none is set yet.
	SetUserPassword(ctx context.Context, id, hash string) error
	// AddEcoPoints atomically increments a user's eco-points.
	AddEcoPoints(ctx context.Context, id string, delta int) error
	SaveDeviceToken(ctx context.Context, t *models.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID string) ([]models.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	// ListReports returns matching reports, newest first.
	ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error)
	// UpdateReport writes r only if the stored version equals r.Version, then
	// increments r.Version. Returns ErrVersionConflict otherwise.
	UpdateReport(ctx context.Context, r *models.Report) error
}

type BinStore interface {
	CreateBin(ctx context.Context, b *models.Bin) error
	GetBin(ctx context.Context, id string) (*models.Bin, error)
	// ListBins returns matching bins ordered by location.
	ListBins(ctx context.Context, f BinFilter) ([]models.Bin, error)
	// UpdateBin is a conditional write on b.Version, like UpdateReport.
	UpdateBin(ctx context.Context, b *models.Bin) error
}

type DriverStore interface {
	CreateDriver(ctx context.Context, d *models.Driver) error
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	// ListDrivers returns matching drivers ordered by name.
	ListDrivers(ctx context.Context, f DriverFilter) ([]models.Driver, error)
	// UpdateDriver is a conditional write on d.Version, like UpdateReport.
	UpdateDriver(ctx context.Context, d *models.Driver) error
}

// Store bundles every entity store behind one backend.
type Store interface {
	UserStore
	ReportStore
	BinStore
	DriverStore
	Close() error
}
