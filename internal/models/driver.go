package models

import (
	"strings"
	"time"

	apperrors "wastewatch-backend/internal/errors"
)

// DriverShift is the part of the day a driver works.
type DriverShift string

const (
	ShiftMorning DriverShift = "morning"
	ShiftEvening DriverShift = "evening"
	ShiftNight   DriverShift = "night"
)

// ParseDriverShift returns the shift named by s.
func ParseDriverShift(s string) (DriverShift, bool) {
	switch shift := DriverShift(strings.ToLower(strings.TrimSpace(s))); shift {
	case ShiftMorning, ShiftEvening, ShiftNight:
		return shift, true
	default:
		return "", false
	}
}

// Driver is a collection vehicle operator. An unavailable driver always has a route.
type Driver struct {
	ID            string      `json:"id" db:"id" bson:"_id"`
	Name          string      `json:"name" db:"name" bson:"name"`
	Phone         string      `json:"phone" db:"phone" bson:"phone"`
	VehicleNumber string      `json:"vehicle_number" db:"vehicle_number" bson:"vehicle_number"`
	Shift         DriverShift `json:"shift" db:"shift" bson:"shift"`
	Availability  bool        `json:"availability" db:"availability" bson:"availability"`
	CurrentRoute  *string     `json:"current_route,omitempty" db:"current_route" bson:"current_route,omitempty"`
	CreatedAt     int64       `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt     int64       `json:"updated_at" db:"updated_at" bson:"updated_at"`
	Version       int64       `json:"-" db:"version" bson:"version"`
}

// Assign puts an available driver on a route.
func (d Driver) Assign(routeID string, now time.Time) (Driver, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return d, apperrors.New(apperrors.KindValidation, "routeId is required")
	}
	if !d.Availability {
		route := ""
		if d.CurrentRoute != nil {
			route = *d.CurrentRoute
		}
		return d, apperrors.Newf(apperrors.KindNotAvailable, "driver %s is already on route %s", d.Name, route)
	}
	d.Availability = false
	d.CurrentRoute = &routeID
	d.UpdatedAt = now.Unix()
	return d, nil
}

// Release takes the driver off their route and marks them available again.
func (d Driver) Release(now time.Time) Driver {
	d.Availability = true
	d.CurrentRoute = nil
	d.UpdatedAt = now.Unix()
	return d
}

// CreateDriverRequest is the request body for POST /api/drivers
type CreateDriverRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,max=32"`
	VehicleNumber string `json:"vehicle_number" validate:"required,max=32"`
	Shift         string `json:"shift" validate:"required,oneof=morning evening night"`
}

func (r *CreateDriverRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.VehicleNumber = strings.TrimSpace(r.VehicleNumber)
	r.Shift = strings.ToLower(strings.TrimSpace(r.Shift))
}

// AssignDriverRequest is the request body for PUT /api/drivers/{id}/assign
type AssignDriverRequest struct {
	RouteID      string `json:"routeId"`
	RouteIDSnake string `json:"route_id,omitempty"`
}

func (r *AssignDriverRequest) Normalize() {
	if r.RouteID == "" {
		r.RouteID = r.RouteIDSnake
	}
	r.RouteID = strings.TrimSpace(r.RouteID)
}

// DriverResponse is what we send to the client with ISO timestamps
type DriverResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	VehicleNumber string      `json:"vehicle_number"`
	Shift         DriverShift `json:"shift"`
	Availability  bool        `json:"availability"`
	CurrentRoute  *string     `json:"current_route,omitempty"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

func (d *Driver) ToDriverResponse() DriverResponse {
	return DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		VehicleNumber: d.VehicleNumber,
		Shift:         d.Shift,
		Availability:  d.Availability,
		CurrentRoute:  d.CurrentRoute,
		CreatedAt:     isoTime(d.CreatedAt),
		UpdatedAt:     isoTime(d.UpdatedAt),
	}
}
