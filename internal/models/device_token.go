package models

import "strings"

// DeviceToken is a Firebase Cloud Messaging registration for a user's device
type DeviceToken struct {
	UserID     string `json:"user_id" db:"user_id" bson:"user_id"`
	Token      string `json:"token" db:"token" bson:"_id"`
	DeviceType string `json:"device_type" db:"device_type" bson:"device_type"` // "ios", "android" or "web"
	CreatedAt  int64  `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// RegisterDeviceTokenRequest is the request body for POST /api/users/me/device-token
type RegisterDeviceTokenRequest struct {
	Token      string `json:"token" validate:"required,max=4096"`
	DeviceType string `json:"deviceType" validate:"required,oneof=ios android web"`
}

func (r *RegisterDeviceTokenRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
	r.DeviceType = strings.ToLower(strings.TrimSpace(r.DeviceType))
}
