package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindNotFound, "report not found")
	wrapped := fmt.Errorf("update status: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
}

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   Kind
		wantMsg    string
	}{
		{"validation", New(KindValidation, "title is required"), http.StatusBadRequest, KindValidation, "title is required"},
		{"invalid role", ErrInvalidRole, http.StatusBadRequest, KindInvalidRole, "invalid role"},
		{"invalid transition", ErrInvalidTransition, http.StatusConflict, KindInvalidTransition, "invalid status transition"},
		{"already assigned", ErrAlreadyAssigned, http.StatusConflict, KindAlreadyAssigned, "report already assigned"},
		{"not available", ErrNotAvailable, http.StatusConflict, KindNotAvailable, "driver not available"},
		{"out of range", ErrOutOfRange, http.StatusConflict, KindOutOfRange, "value out of range"},
		{"not found", ErrNotFound, http.StatusNotFound, KindNotFound, "not found"},
		{"conflict", ErrConflict, http.StatusConflict, KindConflict, "concurrent modification"},
		{"unauthorized", ErrUnauthorized, http.StatusForbidden, KindUnauthorized, "not permitted"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded"},
		{"internal hides cause", Internal("database down", errors.New("dial tcp: refused")), http.StatusInternalServerError, KindInternal, "internal server error"},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, KindInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind, msg := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "failed to load reports", cause)

	assert.Equal(t, "failed to load reports: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(cause))
}
