package services

import (
	"errors"
	"fmt"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/store"
)

// casRetries is how many times a conditional write is retried after losing a race.
const casRetries = 1

// retryOnConflict runs op, re-running it once if the store reports a version
// conflict. A second conflict surfaces as a Conflict error.
func retryOnConflict(op func() error) error {
	var err error
	for attempt := 0; attempt <= casRetries; attempt++ {
		err = op()
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return apperrors.Wrap(apperrors.KindConflict, "the record was modified concurrently, please retry", err)
}

// storeError maps a store failure onto the error taxonomy. Version conflicts
// pass through untouched so retryOnConflict can see them.
func storeError(err error, entity, id string) error {
	var appErr *apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperrors.Newf(apperrors.KindNotFound, "%s %s not found", entity, id)
	case errors.Is(err, store.ErrVersionConflict):
		return err
	case errors.As(err, &appErr):
		return err
	default:
		return apperrors.Internal(fmt.Sprintf("failed to access %s", entity), err)
	}
}
