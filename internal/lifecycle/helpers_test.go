package lifecycle_test

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

var baseTime = time.Date(2025, time.September, 15, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time {
	return baseTime.Add(offset)
}

func tr(from, to domain.DeviceStatus, ts time.Time) domain.DeviceTransition {
	return domain.DeviceTransition{DeviceID: "dev-1", FromStatus: from, ToStatus: to, Timestamp: ts}
}

func newDevice(status domain.DeviceStatus, transitions ...domain.DeviceTransition) *domain.Device {
	return &domain.Device{
		ID:          "dev-1",
		CustomerID:  "cust-1",
		Status:      status,
		Transitions: transitions,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
}
