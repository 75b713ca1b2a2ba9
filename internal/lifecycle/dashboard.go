package lifecycle

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// Summarize counts open, overdue and due-today devices. Terminal devices are
// not active; corrupted devices are counted apart and nowhere else.
func Summarize(devices []*domain.Device, now time.Time, loc *time.Location) domain.DashboardCounts {
	var counts domain.DashboardCounts
	for _, device := range devices {
		if device == nil {
			continue
		}
		class, err := Classify(device, now, loc)
		if err != nil {
			if IsCorrupted(err) {
				counts.Corrupted++
			}
			continue
		}
		if device.Status.IsTerminal() {
			continue
		}
		counts.Active++
		switch class.Kind {
		case domain.OverdueKindOverdue:
			counts.Overdue++
		case domain.OverdueKindDueToday:
			counts.DueToday++
		}
	}
	return counts
}
