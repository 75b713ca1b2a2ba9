package lifecycle

import (
	"errors"
	"fmt"

	"github.com/spec-kit/repair-service/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCorruptedStatus   = errors.New("corrupted device status")
	ErrOutOfOrder        = errors.New("transition timestamp precedes device history")
	ErrStaleTransition   = errors.New("transition does not start from current device status")
	ErrForeignTransition = errors.New("transition belongs to another device")
	ErrNilDevice         = errors.New("device required")
)

// TransitionError describes a rejected status change. It unwraps to
// ErrInvalidTransition or ErrCorruptedStatus.
type TransitionError struct {
	DeviceID string
	From     domain.DeviceStatus
	To       domain.DeviceStatus
	// Value is the offending stored value for corrupted records.
	Value string
	// Allowed lists the legal targets from From, for re-prompting.
	Allowed []domain.DeviceStatus
	Err     error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Err, ErrCorruptedStatus) {
		if domain.LooksLikeIdentifier(e.Value) {
			return fmt.Sprintf("device %s: %v: status holds identifier %q", e.DeviceID, e.Err, e.Value)
		}
		return fmt.Sprintf("device %s: %v: %q", e.DeviceID, e.Err, e.Value)
	}
	return fmt.Sprintf("device %s: %v: %s -> %s", e.DeviceID, e.Err, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// IsCorrupted reports whether err marks a record needing recovery.
func IsCorrupted(err error) bool {
	return errors.Is(err, ErrCorruptedStatus)
}

func corrupted(deviceID, value string) error {
	return &TransitionError{DeviceID: deviceID, Value: value, Err: ErrCorruptedStatus}
}

func invalid(deviceID string, from, to domain.DeviceStatus) error {
	return &TransitionError{
		DeviceID: deviceID,
		From:     from,
		To:       to,
		Allowed:  NextStatuses(from),
		Err:      ErrInvalidTransition,
	}
}

// ParseStatus validates a raw stored value against the enumeration. Values are
// never trimmed or case-folded.
func ParseStatus(deviceID, raw string) (domain.DeviceStatus, error) {
	status := domain.DeviceStatus(raw)
	if !status.IsValid() {
		return "", corrupted(deviceID, raw)
	}
	return status, nil
}
