package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Role is the fixed role a user is created with.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
)

// ParseRole returns the role named by s. Only the three enumerated roles are accepted.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCitizen:
		return RoleCitizen, true
	case RoleWorker:
		return RoleWorker, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

type User struct {
	ID        string  `json:"id" db:"id" bson:"_id"`
	Email     string  `json:"email" db:"email" bson:"email"`
	Password  *string `json:"-" db:"password" bson:"password,omitempty"` // bcrypt hash, only set in password auth mode
	Name      string  `json:"name" db:"name" bson:"name"`
	Phone     string  `json:"phone" db:"phone" bson:"phone"`
	Role      Role    `json:"role" db:"role" bson:"role"`
	EcoPoints int     `json:"eco_points" db:"eco_points" bson:"eco_points"`
	CreatedAt int64   `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
	EcoPoints int    `json:"eco_points"`
	CreatedAt string `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		EcoPoints: u.EcoPoints,
		CreatedAt: time.Unix(u.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameFromEmail derives a default display name from the local part of an email.
func DisplayNameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "Resident"
	}
	return strings.Join(words, " ")
}

// LoginRequest is the request body for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// CreateUserRequest is the request body for POST /api/users
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"max=32"`
	Role     string `json:"role" validate:"required,oneof=citizen worker admin"`
	Password string `json:"password,omitempty"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}
