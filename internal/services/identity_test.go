package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store/memory"
)

func TestResolveCreatesUserOnFirstLogin(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewIdentityService(s, DemoVerifier{})

	u, err := svc.Resolve(ctx, " Jane.Doe@City.gov ", "citizen", "")

	require.NoError(t, err)
	assert.Equal(t, "jane.doe@city.gov", u.Email)
	assert.Equal(t, "Jane Doe", u.Name)
	assert.Equal(t, models.RoleCitizen, u.Role)
	assert.Equal(t, 0, u.EcoPoints)

	again, err := svc.Resolve(ctx, "jane.doe@city.gov", "citizen", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestResolveRejectsInvalidRole(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.New(), nil)

	for _, role := range []string{"", "superuser", "driver"} {
		_, err := svc.Resolve(ctx, "a@b.com", role, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidRole), role)
	}
}

func TestResolveKeepsStoredRole(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.New(), nil)

	_, err := svc.Resolve(ctx, "sam@city.gov", "citizen", "")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "sam@city.gov", "admin", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRole))
}

func TestResolveValidatesEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.New(), nil)

	_, err := svc.Resolve(ctx, "   ", "citizen", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.Resolve(ctx, "not-an-email", "citizen", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestPasswordVerifier(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewIdentityService(s, NewPasswordVerifier(s))

	_, err := svc.Resolve(ctx, "crew@city.gov", "worker", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), "password required")

	first, err := svc.Resolve(ctx, "crew@city.gov", "worker", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, first.Password)

	_, err = svc.Resolve(ctx, "crew@city.gov", "worker", "s3cret")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "crew@city.gov", "worker", "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc := NewIdentityService(memory.New(), nil)

	u, err := svc.CreateUser(ctx, models.CreateUserRequest{Email: "Ops@City.gov", Name: "Ops", Role: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ops@city.gov", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	require.NotNil(t, u.Password)
	assert.NotEqual(t, "pw", *u.Password)

	_, err = svc.CreateUser(ctx, models.CreateUserRequest{Email: "ops@city.gov", Name: "Dup", Role: "worker"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.CreateUser(ctx, models.CreateUserRequest{Email: "x@city.gov", Name: "X", Role: "mayor"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRegisterDeviceToken(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewIdentityService(s, nil)

	require.NoError(t, svc.RegisterDeviceToken(ctx, "u1", models.RegisterDeviceTokenRequest{Token: "tok", DeviceType: "Android"}))
	err := svc.RegisterDeviceToken(ctx, "u1", models.RegisterDeviceTokenRequest{Token: "tok2", DeviceType: "blackberry"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	tokens, err := s.ListDeviceTokens(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "android", tokens[0].DeviceType)
}
