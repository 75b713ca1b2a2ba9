package handlers

import (
	"errors"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// lifecycleError translates engine and store errors into API errors.
func lifecycleError(deviceID string, err error) error {
	if err == nil {
		return nil
	}

	var terr *lifecycle.TransitionError
	switch {
	case errors.As(err, &terr) && errors.Is(err, lifecycle.ErrCorruptedStatus):
		return apperrors.NewCorruptedStatus(map[string]any{
			"device_id":       terr.DeviceID,
			"value":           terr.Value,
			"identifier_leak": domain.LooksLikeIdentifier(terr.Value),
			"hint":            "run POST /devices/" + terr.DeviceID + "/recover",
		}, err)
	case errors.As(err, &terr) && errors.Is(err, lifecycle.ErrInvalidTransition):
		return apperrors.NewInvalidTransition("status change not allowed", map[string]any{
			"device_id": terr.DeviceID,
			"from":      terr.From,
			"to":        terr.To,
			"allowed":   terr.Allowed,
		}, err)
	case errors.Is(err, lifecycle.ErrOutOfOrder), errors.Is(err, lifecycle.ErrStaleTransition):
		return apperrors.NewConflict(err.Error(), map[string]any{"device_id": deviceID})
	case errors.Is(err, repository.ErrDeviceNotFound):
		return apperrors.NewNotFound("device", map[string]any{"id": deviceID})
	case errors.Is(err, repository.ErrDeviceExists):
		return apperrors.NewConflict("device already exists", map[string]any{"id": deviceID})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("device was modified concurrently; reload and retry", map[string]any{"device_id": deviceID})
	case errors.Is(err, service.ErrPersistenceFailure):
		details := map[string]any{}
		var perr *service.PersistenceError
		if errors.As(err, &perr) && perr.DeviceID != "" {
			details["device_id"] = perr.DeviceID
		}
		return apperrors.NewPersistenceFailure(details, err)
	}
	return err
}
