package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

// EcoPoints is how many points a citizen earns for report activity.
type EcoPoints struct {
	OnReport   int
	OnResolved int
}

var DefaultEcoPoints = EcoPoints{OnReport: 10, OnResolved: 20}

const (
	geocodeTimeout = 3 * time.Second
	notifyTimeout  = 10 * time.Second
)

// ReportService owns the report lifecycle: creation, listing and status changes.
type ReportService struct {
	reports  store.ReportStore
	users    store.UserStore
	events   EventPublisher
	pusher   ReportPusher
	geocoder Geocoder
	points   EcoPoints
	now      func() time.Time
}

type ReportOption func(*ReportService)

func WithEvents(p EventPublisher) ReportOption {
	return func(s *ReportService) { s.events = p }
}

func WithNotifier(p ReportPusher) ReportOption {
	return func(s *ReportService) { s.pusher = p }
}

func WithGeocoder(g Geocoder) ReportOption {
	return func(s *ReportService) { s.geocoder = g }
}

func WithEcoPoints(p EcoPoints) ReportOption {
	return func(s *ReportService) { s.points = p }
}

func withClock(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

func NewReportService(reports store.ReportStore, users store.UserStore, opts ...ReportOption) *ReportService {
	s := &ReportService{
		reports: reports,
		users:   users,
		points:  DefaultEcoPoints,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create files a new report in the reported state.
func (s *ReportService) Create(ctx context.Context, req models.CreateReportRequest) (*models.Report, error) {
	req.Normalize()
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, apperrors.New(apperrors.KindValidation, "latitude and longitude must be provided together")
	}

	creator, err := s.users.GetUser(ctx, req.CreatorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown creator %s", req.CreatorID)
	}
	if err != nil {
		return nil, storeError(err, "user", req.CreatorID)
	}

	now := s.now().Unix()
	report := &models.Report{
		ID:          uuid.New().String(),
		UserID:      creator.ID,
		Title:       req.Title,
		Description: req.Description,
		WasteType:   models.WasteType(req.WasteType),
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageURL:    req.ImageURL,
		Status:      models.ReportStatusReported,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if report.Latitude == nil {
		s.geocode(ctx, report)
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, storeError(err, "report", report.ID)
	}
	log.Printf("📝 Report %s created by %s (%s)", report.ID, creator.ID, report.WasteType)

	if creator.Role == models.RoleCitizen {
		s.award(ctx, creator.ID, s.points.OnReport)
	}
	s.publish(EventReportCreated, report)
	return report, nil
}

// geocode fills in coordinates from the free-text location. Failures are
// logged and the report is stored without coordinates.
func (s *ReportService) geocode(ctx context.Context, r *models.Report) {
	if s.geocoder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	addr, err := s.geocoder.Geocode(ctx, r.Location)
	if err != nil {
		log.Printf("⚠️  Geocoding %q failed: %v", r.Location, err)
		return
	}
	lat, lng := addr.Coordinates.Lat, addr.Coordinates.Lng
	r.Latitude, r.Longitude = &lat, &lng
}

func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, storeError(err, "report", id)
	}
	return r, nil
}

// List returns reports matching f, newest first.
func (s *ReportService) List(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	reports, err := s.reports.ListReports(ctx, f)
	if err != nil {
		return nil, storeError(err, "reports", "")
	}
	return reports, nil
}

// ListByUser returns every report created by userID, newest first.
func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]models.Report, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "userId is required")
	}
	return s.List(ctx, store.ReportFilter{UserID: userID})
}

// ListByStatus returns every report in the named status, newest first.
func (s *ReportService) ListByStatus(ctx context.Context, status string) ([]models.Report, error) {
	st, ok := models.ParseReportStatus(status)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown status %q", status)
	}
	return s.List(ctx, store.ReportFilter{Status: st})
}

// UpdateStatus moves a report forward one step on behalf of workerID.
// The write is conditional on the version that was read; a lost race is
// retried once against fresh state, which then fails the usual transition
// checks if the other writer already moved the report.
func (s *ReportService) UpdateStatus(ctx context.Context, id, status, workerID string) (*models.Report, error) {
	next, ok := models.ParseReportStatus(status)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown status %q", status)
	}

	var (
		result        models.Report
		changed       bool
		workerChecked = workerID == ""
	)
	err := retryOnConflict(func() error {
		current, err := s.reports.GetReport(ctx, id)
		if err != nil {
			return storeError(err, "report", id)
		}
		// An unknown report is reported as such before the worker is looked at.
		if !workerChecked {
			if err := s.checkWorker(ctx, workerID); err != nil {
				return err
			}
			workerChecked = true
		}
		updated, ch, err := current.Transition(next, workerID, s.now())
		if err != nil {
			return err
		}
		if ch {
			if err := s.reports.UpdateReport(ctx, &updated); err != nil {
				return storeError(err, "report", id)
			}
		}
		result, changed = updated, ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Printf("🔄 Report %s moved to %s", result.ID, result.Status)
		if result.Status == models.ReportStatusResolved {
			s.awardIfCitizen(ctx, result.UserID, s.points.OnResolved)
		}
		s.publish(EventReportUpdated, &result)
		s.pushStatus(result)
	}
	return &result, nil
}

// checkWorker rejects worker ids that do not belong to a worker account.
func (s *ReportService) checkWorker(ctx context.Context, workerID string) error {
	u, err := s.users.GetUser(ctx, workerID)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.Newf(apperrors.KindValidation, "unknown worker %s", workerID)
	}
	if err != nil {
		return storeError(err, "user", workerID)
	}
	if u.Role != models.RoleWorker {
		return apperrors.Newf(apperrors.KindValidation, "user %s is not a worker", workerID)
	}
	return nil
}

func (s *ReportService) awardIfCitizen(ctx context.Context, userID string, points int) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Could not load report creator %s for eco points: %v", userID, err)
		return
	}
	if u.Role == models.RoleCitizen {
		s.award(ctx, userID, points)
	}
}

// award is best effort: the report change has already been committed.
func (s *ReportService) award(ctx context.Context, userID string, points int) {
	if points == 0 {
		return
	}
	if err := s.users.AddEcoPoints(ctx, userID, points); err != nil {
		log.Printf("⚠️  Failed to award %d eco points to %s: %v", points, userID, err)
	}
}

func (s *ReportService) publish(event string, r *models.Report) {
	if s.events == nil {
		return
	}
	resp := r.ToReportResponse()
	s.events.BroadcastToRole(models.RoleWorker, event, resp)
	s.events.BroadcastToRole(models.RoleAdmin, event, resp)
	s.events.BroadcastToUser(r.UserID, event, resp)
}

// pushStatus notifies the creator's devices in the background.
func (s *ReportService) pushStatus(r models.Report) {
	if s.pusher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		tokens, err := s.users.ListDeviceTokens(ctx, r.UserID)
		if err != nil {
			log.Printf("⚠️  Failed to load device tokens for %s: %v", r.UserID, err)
			return
		}
		if len(tokens) == 0 {
			return
		}
		values := make([]string, len(tokens))
		for i, t := range tokens {
			values[i] = t.Token
		}

		stale, err := s.pusher.SendReportStatusNotification(ctx, values, &r)
		if err != nil {
			log.Printf("❌ Failed to push report %s status: %v", r.ID, err)
			return
		}
		for _, token := range stale {
			if err := s.users.DeleteDeviceToken(ctx, token); err != nil {
				log.Printf("⚠️  Failed to remove stale device token: %v", err)
			}
		}
	}()
}
