package lifecycle

import (
	"sort"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// Append records an accepted transition on the device and moves its status.
// The log only grows; records are never rewritten.
func Append(device *domain.Device, transition domain.DeviceTransition) error {
	if device == nil {
		return ErrNilDevice
	}
	if transition.DeviceID != "" && transition.DeviceID != device.ID {
		return ErrForeignTransition
	}
	if transition.FromStatus == domain.DeviceStatusNone {
		if len(device.Transitions) > 0 {
			return ErrStaleTransition
		}
	} else if transition.FromStatus != device.Status {
		return ErrStaleTransition
	}
	if n := len(device.Transitions); n > 0 && transition.Timestamp.Before(device.Transitions[n-1].Timestamp) {
		return ErrOutOfOrder
	}
	transition.DeviceID = device.ID
	device.Transitions = append(device.Transitions, transition)
	device.Status = transition.ToStatus
	device.UpdatedAt = transition.Timestamp
	return nil
}

// History returns the device's transitions oldest first. Records loaded out of
// order from storage are sorted stably; equal timestamps keep log order.
func History(device *domain.Device) []domain.DeviceTransition {
	if device == nil {
		return []domain.DeviceTransition{}
	}
	history := append([]domain.DeviceTransition{}, device.Transitions...)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history
}

// DurationBetween sums every from..to window in the device's log.
func DurationBetween(device *domain.Device, from, to domain.DeviceStatus, now time.Time) time.Duration {
	return PhaseDuration(device, from, to, now)
}
