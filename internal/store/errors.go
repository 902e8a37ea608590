package store

import (
	"context"
	"errors"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// Unavailable maps a driver failure to model.StorageUnavailableError. Domain
// errors and context cancellation pass through unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, model.ErrStaleUpdate) || errors.Is(err, model.ErrInvalidInput) || errors.Is(err, model.ErrStorageUnavailable) {
		return err
	}
	return model.NewStorageUnavailableError(op, err)
}
