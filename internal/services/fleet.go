package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

// FleetService manages bins and drivers.
type FleetService struct {
	bins    store.BinStore
	drivers store.DriverStore
	events  EventPublisher
	now     func() time.Time
}

func NewFleetService(bins store.BinStore, drivers store.DriverStore, events EventPublisher) *FleetService {
	return &FleetService{bins: bins, drivers: drivers, events: events, now: time.Now}
}

func (s *FleetService) ListBins(ctx context.Context, f store.BinFilter) ([]models.Bin, error) {
	bins, err := s.bins.ListBins(ctx, f)
	if err != nil {
		return nil, storeError(err, "bins", "")
	}
	return bins, nil
}

// Alerts returns bins at or above the alert level.
func (s *FleetService) Alerts(ctx context.Context) ([]models.Bin, error) {
	level := models.AlertLevel
	return s.ListBins(ctx, store.BinFilter{MinLevel: &level})
}

func (s *FleetService) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	b, err := s.bins.GetBin(ctx, id)
	if err != nil {
		return nil, storeError(err, "bin", id)
	}
	return b, nil
}

func (s *FleetService) CreateBin(ctx context.Context, req models.CreateBinRequest) (*models.Bin, error) {
	req.Normalize()
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	bin := &models.Bin{
		ID:           uuid.New().String(),
		Location:     req.Location,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Capacity:     req.Capacity,
		CurrentLevel: req.CurrentLevel,
		WasteType:    models.WasteType(req.WasteType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.bins.CreateBin(ctx, bin); err != nil {
		return nil, storeError(err, "bin", bin.ID)
	}
	log.Printf("🗑️  Bin %s created at %s", bin.ID, bin.Location)
	return bin, nil
}

// updateBin reads a bin, applies change and writes it back conditionally.
func (s *FleetService) updateBin(ctx context.Context, id string, change func(models.Bin) (models.Bin, error)) (prev, next models.Bin, err error) {
	err = retryOnConflict(func() error {
		current, err := s.bins.GetBin(ctx, id)
		if err != nil {
			return storeError(err, "bin", id)
		}
		updated, err := change(*current)
		if err != nil {
			return err
		}
		if err := s.bins.UpdateBin(ctx, &updated); err != nil {
			return storeError(err, "bin", id)
		}
		prev, next = *current, updated
		return nil
	})
	return prev, next, err
}

// RecordCollection empties a bin. Collecting an already empty bin succeeds.
func (s *FleetService) RecordCollection(ctx context.Context, id string) (*models.Bin, error) {
	now := s.now()
	_, bin, err := s.updateBin(ctx, id, func(b models.Bin) (models.Bin, error) {
		return b.Collect(now), nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Bin %s collected", bin.ID)
	s.publish(EventBinUpdated, bin.ToBinResponse())
	return &bin, nil
}

// UpdateFillLevel records a sensor or manual fill reading.
func (s *FleetService) UpdateFillLevel(ctx context.Context, id string, level int) (*models.Bin, error) {
	if err := models.ValidateFillLevel(level); err != nil {
		return nil, err
	}
	now := s.now()
	prev, bin, err := s.updateBin(ctx, id, func(b models.Bin) (models.Bin, error) {
		return b.WithFillLevel(level, now)
	})
	if err != nil {
		return nil, err
	}

	resp := bin.ToBinResponse()
	s.publish(EventBinUpdated, resp)
	if !prev.IsHighPriority() && bin.IsHighPriority() {
		log.Printf("🚨 Bin %s at %s reached %d%%", bin.ID, bin.Location, bin.CurrentLevel)
		s.publish(EventBinAlert, resp)
	}
	return &bin, nil
}

func (s *FleetService) ListDrivers(ctx context.Context, f store.DriverFilter) ([]models.Driver, error) {
	drivers, err := s.drivers.ListDrivers(ctx, f)
	if err != nil {
		return nil, storeError(err, "drivers", "")
	}
	return drivers, nil
}

func (s *FleetService) CreateDriver(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
	req.Normalize()
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	driver := &models.Driver{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Phone:         req.Phone,
		VehicleNumber: req.VehicleNumber,
		Shift:         models.DriverShift(req.Shift),
		Availability:  true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.drivers.CreateDriver(ctx, driver); err != nil {
		return nil, storeError(err, "driver", driver.ID)
	}
	log.Printf("🚛 Driver %s (%s) registered", driver.Name, driver.VehicleNumber)
	return driver, nil
}

func (s *FleetService) updateDriver(ctx context.Context, id string, change func(models.Driver) (models.Driver, error)) (models.Driver, error) {
	var result models.Driver
	err := retryOnConflict(func() error {
		current, err := s.drivers.GetDriver(ctx, id)
		if err != nil {
			return storeError(err, "driver", id)
		}
		updated, err := change(*current)
		if err != nil {
			return err
		}
		if err := s.drivers.UpdateDriver(ctx, &updated); err != nil {
			return storeError(err, "driver", id)
		}
		result = updated
		return nil
	})
	return result, err
}

// AssignDriver puts an available driver on routeID. An unavailable driver is
// left untouched and NotAvailable is returned.
func (s *FleetService) AssignDriver(ctx context.Context, id, routeID string) (*models.Driver, error) {
	now := s.now()
	driver, err := s.updateDriver(ctx, id, func(d models.Driver) (models.Driver, error) {
		return d.Assign(routeID, now)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🚛 Driver %s assigned to route %s", driver.ID, routeID)
	s.publish(EventDriverUpdated, driver)
	return &driver, nil
}

// ReleaseDriver takes a driver off their route. Releasing an available driver succeeds.
func (s *FleetService) ReleaseDriver(ctx context.Context, id string) (*models.Driver, error) {
	now := s.now()
	driver, err := s.updateDriver(ctx, id, func(d models.Driver) (models.Driver, error) {
		return d.Release(now), nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventDriverUpdated, driver)
	return &driver, nil
}

func (s *FleetService) publish(event string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.BroadcastToRole(models.RoleAdmin, event, data)
}
