package domain

import "time"

// OverdueKind enumerates the outcomes of overdue classification.
type OverdueKind string

const (
	OverdueKindCompleted     OverdueKind = "completed"
	OverdueKindOverdue       OverdueKind = "overdue"
	OverdueKindDueToday      OverdueKind = "due-today"
	OverdueKindOnTrack       OverdueKind = "on-track"
	OverdueKindNotApplicable OverdueKind = "not-applicable"
)

// OverdueClassification is derived from a device and "now"; it is never persisted.
type OverdueClassification struct {
	Kind OverdueKind
	// Duration is the elapsed overdue time for overdue devices and the remaining
	// time for due-today and on-track devices.
	Duration time.Duration
	Display  string
}

// Durations reports the time spent in the technician and handover phases.
type Durations struct {
	Technician time.Duration
	Handover   time.Duration
}

// DashboardCounts summarizes a device set for dashboard widgets.
type DashboardCounts struct {
	Active    int
	Overdue   int
	DueToday  int
	Corrupted int
}
