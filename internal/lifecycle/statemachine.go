package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CanTransition reports whether to is reachable from from in one step.
// Both values must be enumeration members.
func CanTransition(from, to domain.DeviceStatus) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if to == domain.DeviceStatusInProgress {
		// legacy value; accepted when stored, never written
		return false
	}
	switch from {
	case domain.DeviceStatusDone:
		return false
	case domain.DeviceStatusFailed:
		return to == domain.DeviceStatusReturnedToCustomerCare || to == domain.DeviceStatusDone
	}
	switch to {
	case domain.DeviceStatusFailed:
		return true
	case domain.DeviceStatusDone:
		return from == domain.DeviceStatusReturnedToCustomerCare
	case domain.DeviceStatusReturnedToCustomerCare:
		return from == domain.DeviceStatusRepairComplete
	}
	// forward progress and rework loops inside intake..completion
	return to.Phase() <= domain.PhaseCompletion
}

// NextStatuses returns the legal targets from current in lifecycle order.
func NextStatuses(current domain.DeviceStatus) []domain.DeviceStatus {
	next := []domain.DeviceStatus{}
	for _, candidate := range domain.DeviceStatuses {
		if CanTransition(current, candidate) {
			next = append(next, candidate)
		}
	}
	return next
}

// AttemptTransition validates a status change without applying it. The
// returned transition is ready to Append.
func AttemptTransition(device *domain.Device, to domain.DeviceStatus, now time.Time) (domain.DeviceTransition, error) {
	if device == nil {
		return domain.DeviceTransition{}, ErrNilDevice
	}
	from, err := ParseStatus(device.ID, string(device.Status))
	if err != nil {
		return domain.DeviceTransition{}, err
	}
	if !CanTransition(from, to) {
		return domain.DeviceTransition{}, invalid(device.ID, from, to)
	}
	return newTransition(device.ID, from, to, now), nil
}

// InitialTransition validates the intake record of a device with an empty log.
func InitialTransition(device *domain.Device, to domain.DeviceStatus, now time.Time) (domain.DeviceTransition, error) {
	if device == nil {
		return domain.DeviceTransition{}, ErrNilDevice
	}
	if len(device.Transitions) > 0 || to.Phase() != domain.PhaseIntake {
		return domain.DeviceTransition{}, &TransitionError{
			DeviceID: device.ID,
			From:     domain.DeviceStatusNone,
			To:       to,
			Allowed:  []domain.DeviceStatus{domain.DeviceStatusPending, domain.DeviceStatusAssigned},
			Err:      ErrInvalidTransition,
		}
	}
	return newTransition(device.ID, domain.DeviceStatusNone, to, now), nil
}

func newTransition(deviceID string, from, to domain.DeviceStatus, now time.Time) domain.DeviceTransition {
	return domain.DeviceTransition{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  now,
	}
}
