package lifecycle

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// Classify places a device relative to its expected return. Calendar days are
// compared in loc; a nil loc uses now's location. Past the exact due time is
// overdue even on the due day.
func Classify(device *domain.Device, now time.Time, loc *time.Location) (domain.OverdueClassification, error) {
	if device == nil {
		return domain.OverdueClassification{}, ErrNilDevice
	}
	status, err := ParseStatus(device.ID, string(device.Status))
	if err != nil {
		return domain.OverdueClassification{}, err
	}
	if status.IsTerminal() || device.ExpectedReturn == nil || device.ExpectedReturn.IsZero() {
		return notApplicable(), nil
	}
	switch status.Phase() {
	case domain.PhaseCompletion, domain.PhaseHandoff:
		return domain.OverdueClassification{Kind: domain.OverdueKindCompleted}, nil
	}

	if loc == nil {
		loc = now.Location()
	}
	current := now.In(loc)
	due := device.ExpectedReturn.In(loc)

	if current.After(due) {
		return classification(domain.OverdueKindOverdue, current.Sub(due)), nil
	}
	if sameDay(current, due) {
		return classification(domain.OverdueKindDueToday, due.Sub(current)), nil
	}
	return classification(domain.OverdueKindOnTrack, due.Sub(current)), nil
}

func classification(kind domain.OverdueKind, d time.Duration) domain.OverdueClassification {
	return domain.OverdueClassification{Kind: kind, Duration: d, Display: FormatDuration(d)}
}

func notApplicable() domain.OverdueClassification {
	return domain.OverdueClassification{Kind: domain.OverdueKindNotApplicable}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
