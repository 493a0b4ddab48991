package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store"
)

// IdentityService maps login credentials to users and manages user records.
type IdentityService struct {
	users    store.UserStore
	verifier CredentialVerifier
	now      func() time.Time
}

func NewIdentityService(users store.UserStore, verifier CredentialVerifier) *IdentityService {
	if verifier == nil {
		verifier = DemoVerifier{}
	}
	return &IdentityService{users: users, verifier: verifier, now: time.Now}
}

// Resolve returns the user registered under email, creating one with the
// requested role on first login. An existing user keeps the role they were
// created with; asking for a different one fails with InvalidRole.
func (s *IdentityService) Resolve(ctx context.Context, email, requestedRole, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.New(apperrors.KindValidation, "email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.KindValidation, "email must be a valid email address")
	}
	role, ok := models.ParseRole(requestedRole)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidRole, "role %q is not one of citizen, worker, admin", requestedRole)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		user, err = s.createOnFirstLogin(ctx, email, role)
		if err != nil {
			return nil, err
		}
	default:
		return nil, storeError(err, "user", email)
	}

	if user.Role != role {
		return nil, apperrors.Newf(apperrors.KindInvalidRole, "account is registered as %s", user.Role)
	}
	if err := s.verifier.Verify(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *IdentityService) createOnFirstLogin(ctx context.Context, email string, role models.Role) (*models.User, error) {
	now := s.now().Unix()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      models.DisplayNameFromEmail(email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent first login for the same email.
		existing, getErr := s.users.GetUserByEmail(ctx, email)
		if getErr != nil {
			return nil, storeError(getErr, "user", email)
		}
		return existing, nil
	}
	if err != nil {
		return nil, storeError(err, "user", email)
	}

	log.Printf("👤 Created %s account for %s", role, email)
	return user, nil
}

func (s *IdentityService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", id)
	}
	return user, nil
}

// CreateUser registers a user explicitly (admin action).
func (s *IdentityService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	req.Normalize()
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidRole, "role %q is not one of citizen, worker, admin", req.Role)
	}

	now := s.now().Unix()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, apperrors.Internal("failed to hash password", err)
		}
		user.Password = &hash
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Newf(apperrors.KindValidation, "email %s is already registered", req.Email)
		}
		return nil, storeError(err, "user", req.Email)
	}
	return user, nil
}

// RegisterDeviceToken stores an FCM token for userID, replacing any previous owner.
func (s *IdentityService) RegisterDeviceToken(ctx context.Context, userID string, req models.RegisterDeviceTokenRequest) error {
	req.Normalize()
	if err := models.Validate(req); err != nil {
		return err
	}

	now := s.now().Unix()
	token := &models.DeviceToken{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.SaveDeviceToken(ctx, token); err != nil {
		return storeError(err, "device token", "")
	}
	return nil
}
