package lifecycle

import (
	"fmt"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// PhaseDuration sums the time the device spent between entering from and
// next entering to. Each re-entry into from after a closed window opens a new
// window. A window still open at the end of the log runs until now, or until
// device.UpdatedAt when now is zero; a device that reached a terminal status
// closes its open window at that transition.
func PhaseDuration(device *domain.Device, from, to domain.DeviceStatus, now time.Time) time.Duration {
	if device == nil {
		return 0
	}
	end := now
	if end.IsZero() {
		end = device.UpdatedAt
	}

	var (
		total time.Duration
		open  bool
		start time.Time
	)
	for _, t := range History(device) {
		if open && (t.ToStatus == to || t.ToStatus.IsTerminal()) {
			total += window(start, t.Timestamp)
			open = false
			continue
		}
		if !open && t.ToStatus == from {
			open = true
			start = t.Timestamp
		}
	}
	if open {
		total += window(start, end)
	}
	return total
}

// TechnicianDuration is the time from assignment to repair completion.
func TechnicianDuration(device *domain.Device, now time.Time) time.Duration {
	return PhaseDuration(device, domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, now)
}

// HandoverDuration is the time from repair completion to customer care handoff.
func HandoverDuration(device *domain.Device, now time.Time) time.Duration {
	return PhaseDuration(device, domain.DeviceStatusRepairComplete, domain.DeviceStatusReturnedToCustomerCare, now)
}

// PhaseDurations returns both standard phase durations against one now.
func PhaseDurations(device *domain.Device, now time.Time) domain.Durations {
	return domain.Durations{
		Technician: TechnicianDuration(device, now),
		Handover:   HandoverDuration(device, now),
	}
}

// FormatDuration renders whole seconds below a minute, whole minutes below an
// hour, whole hours otherwise.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	default:
		return fmt.Sprintf("%dh", secs/3600)
	}
}

func window(start, end time.Time) time.Duration {
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
