package models

import (
	"strings"
	"time"

	apperrors "wastewatch-backend/internal/errors"
)

const (
	// HighPriorityLevel is the fill level at which a bin counts as high priority.
	HighPriorityLevel = 80
	// AlertLevel is the fill level reported by the bin alerts endpoint.
	AlertLevel = 60
)

type Bin struct {
	ID            string    `json:"id" db:"id" bson:"_id"`
	Location      string    `json:"location" db:"location" bson:"location"`
	Latitude      *float64  `json:"latitude,omitempty" db:"latitude" bson:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty" db:"longitude" bson:"longitude,omitempty"`
	Capacity      int       `json:"capacity" db:"capacity" bson:"capacity"` // liters
	CurrentLevel  int       `json:"current_level" db:"current_level" bson:"current_level"`
	WasteType     WasteType `json:"waste_type" db:"waste_type" bson:"waste_type"`
	LastCollected *int64    `json:"last_collected,omitempty" db:"last_collected" bson:"last_collected,omitempty"` // Unix timestamp
	CreatedAt     int64     `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt     int64     `json:"updated_at" db:"updated_at" bson:"updated_at"`
	Version       int64     `json:"-" db:"version" bson:"version"`
}

// IsHighPriority reports whether the bin needs collecting soon.
func (b *Bin) IsHighPriority() bool {
	return b.CurrentLevel >= HighPriorityLevel
}

// ValidateFillLevel rejects levels outside 0-100.
func ValidateFillLevel(level int) error {
	if level < 0 || level > 100 {
		return apperrors.Newf(apperrors.KindOutOfRange, "fill level %d is outside 0-100", level)
	}
	return nil
}

// Collect empties the bin. Collecting an empty bin again is allowed.
func (b Bin) Collect(now time.Time) Bin {
	ts := now.Unix()
	b.CurrentLevel = 0
	b.LastCollected = &ts
	b.UpdatedAt = ts
	return b
}

// WithFillLevel returns a copy of the bin at the given level.
func (b Bin) WithFillLevel(level int, now time.Time) (Bin, error) {
	if err := ValidateFillLevel(level); err != nil {
		return b, err
	}
	b.CurrentLevel = level
	b.UpdatedAt = now.Unix()
	return b, nil
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID               string    `json:"id"`
	Location         string    `json:"location"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Capacity         int       `json:"capacity"`
	CurrentLevel     int       `json:"current_level"`
	WasteType        WasteType `json:"waste_type"`
	LastCollectedIso *string   `json:"last_collected,omitempty"`
	HighPriority     bool      `json:"high_priority"`
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	resp := BinResponse{
		ID:           b.ID,
		Location:     b.Location,
		Latitude:     b.Latitude,
		Longitude:    b.Longitude,
		Capacity:     b.Capacity,
		CurrentLevel: b.CurrentLevel,
		WasteType:    b.WasteType,
		HighPriority: b.IsHighPriority(),
	}

	if b.LastCollected != nil {
		iso := isoTime(*b.LastCollected)
		resp.LastCollectedIso = &iso
	}

	return resp
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	Location     string   `json:"location" validate:"required,max=300"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Capacity     int      `json:"capacity" validate:"required,gt=0"`
	CurrentLevel int      `json:"current_level" validate:"gte=0,lte=100"`
	WasteType    string   `json:"waste_type" validate:"required,oneof=general recyclable hazardous organic e_waste bulk landfill"`
}

func (r *CreateBinRequest) Normalize() {
	r.Location = strings.TrimSpace(r.Location)
	r.WasteType = strings.ToLower(strings.TrimSpace(r.WasteType))
}

// UpdateFillLevelRequest is the request body for PUT /api/bins/{id}/level
type UpdateFillLevelRequest struct {
	Level *int `json:"level"`
}
