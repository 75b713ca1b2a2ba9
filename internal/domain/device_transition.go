package domain

import "time"

// DeviceTransition is an immutable audit trail entry for one status change.
type DeviceTransition struct {
	ID         string
	DeviceID   string
	FromStatus DeviceStatus
	ToStatus   DeviceStatus
	ActorID    *string
	Note       string
	Timestamp  time.Time
}
