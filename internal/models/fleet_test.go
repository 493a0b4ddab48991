package models

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wastewatch-backend/internal/errors"
)

func TestBinCollectIsIdempotent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := Bin{ID: "b1", CurrentLevel: 92}

	once := b.Collect(now)
	twice := once.Collect(now.Add(time.Minute))

	assert.Equal(t, 0, once.CurrentLevel)
	assert.Equal(t, 0, twice.CurrentLevel)
	require.NotNil(t, twice.LastCollected)
	assert.Equal(t, now.Add(time.Minute).Unix(), *twice.LastCollected)
	assert.Equal(t, 92, b.CurrentLevel)
}

func TestBinWithFillLevel(t *testing.T) {
	b := Bin{ID: "b1", CurrentLevel: 10}

	for _, level := range []int{0, 55, 100} {
		updated, err := b.WithFillLevel(level, time.Now())
		require.NoError(t, err)
		assert.Equal(t, level, updated.CurrentLevel)
	}

	for _, level := range []int{-1, 101} {
		updated, err := b.WithFillLevel(level, time.Now())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrOutOfRange))
		assert.Equal(t, 10, updated.CurrentLevel)
	}
}

func TestBinHighPriority(t *testing.T) {
	assert.False(t, (&Bin{CurrentLevel: 79}).IsHighPriority())
	assert.True(t, (&Bin{CurrentLevel: 80}).IsHighPriority())
	assert.True(t, (&Bin{CurrentLevel: 80}).ToBinResponse().HighPriority)
}

func TestDriverAssign(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	d := Driver{ID: "d1", Name: "Robert", Availability: true}

	assigned, err := d.Assign("route-1", now)
	require.NoError(t, err)
	assert.False(t, assigned.Availability)
	require.NotNil(t, assigned.CurrentRoute)
	assert.Equal(t, "route-1", *assigned.CurrentRoute)

	again, err := assigned.Assign("route-2", now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotAvailable))
	assert.Equal(t, "route-1", *again.CurrentRoute)

	_, err = d.Assign("  ", now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestDriverRelease(t *testing.T) {
	route := "route-1"
	d := Driver{ID: "d1", Availability: false, CurrentRoute: &route}

	released := d.Release(time.Now())

	assert.True(t, released.Availability)
	assert.Nil(t, released.CurrentRoute)
}

func TestDriverResponseUsesISOTimes(t *testing.T) {
	route := "route-1"
	d := Driver{ID: "d1", Name: "Robert", CurrentRoute: &route, CreatedAt: 1772366400, UpdatedAt: 1772370000}

	resp := d.ToDriverResponse()
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.CreatedAt)
	assert.Equal(t, "2026-03-01T13:00:00Z", resp.UpdatedAt)
	assert.Equal(t, &route, resp.CurrentRoute)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("Worker")
	assert.True(t, ok)
	assert.Equal(t, RoleWorker, r)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestDisplayNameFromEmail(t *testing.T) {
	assert.Equal(t, "Jane Doe", DisplayNameFromEmail("jane.doe@city.gov"))
	assert.Equal(t, "Worker", DisplayNameFromEmail("worker@demo.com"))
	assert.Equal(t, "Resident", DisplayNameFromEmail("@demo.com"))

	for email, want := range map[string]string{
		"élise.martin@city.gov": "Élise Martin",
		"ömer@x.org":            "Ömer",
		"łukasz_nowak@x.pl":     "Łukasz Nowak",
	} {
		got := DisplayNameFromEmail(email)
		assert.True(t, utf8.ValidString(got), email)
		assert.Equal(t, want, got)
	}
}
