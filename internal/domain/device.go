package domain

import (
	"regexp"
	"time"
)

// DeviceStatus enumerates lifecycle states for devices under repair.
type DeviceStatus string

const (
	DeviceStatusPending                DeviceStatus = "pending"
	DeviceStatusAssigned               DeviceStatus = "assigned"
	DeviceStatusDiagnosisStarted       DeviceStatus = "diagnosis-started"
	DeviceStatusAwaitingParts          DeviceStatus = "awaiting-parts"
	DeviceStatusPartsArrived           DeviceStatus = "parts-arrived"
	DeviceStatusInRepair               DeviceStatus = "in-repair"
	DeviceStatusInProgress             DeviceStatus = "in-progress"
	DeviceStatusReassembledTesting     DeviceStatus = "reassembled-testing"
	DeviceStatusRepairComplete         DeviceStatus = "repair-complete"
	DeviceStatusReturnedToCustomerCare DeviceStatus = "returned-to-customer-care"
	DeviceStatusDone                   DeviceStatus = "done"
	DeviceStatusFailed                 DeviceStatus = "failed"

	// DeviceStatusNone is only valid as the origin of a device's first transition.
	DeviceStatusNone DeviceStatus = "none"
)

// Phase groups statuses into ordered lifecycle stages.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseIntake
	PhaseDiagnosis
	PhaseRepair
	PhaseCompletion
	PhaseHandoff
	PhaseTerminal
)

var phaseNames = map[Phase]string{
	PhaseUnknown:    "unknown",
	PhaseIntake:     "intake",
	PhaseDiagnosis:  "diagnosis",
	PhaseRepair:     "repair",
	PhaseCompletion: "completion",
	PhaseHandoff:    "handoff",
	PhaseTerminal:   "terminal",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return phaseNames[PhaseUnknown]
}

// DeviceStatuses lists every member of the enumeration in lifecycle order.
var DeviceStatuses = []DeviceStatus{
	DeviceStatusPending,
	DeviceStatusAssigned,
	DeviceStatusDiagnosisStarted,
	DeviceStatusAwaitingParts,
	DeviceStatusPartsArrived,
	DeviceStatusInRepair,
	DeviceStatusInProgress,
	DeviceStatusReassembledTesting,
	DeviceStatusRepairComplete,
	DeviceStatusReturnedToCustomerCare,
	DeviceStatusDone,
	DeviceStatusFailed,
}

var statusPhases = map[DeviceStatus]Phase{
	DeviceStatusPending:                PhaseIntake,
	DeviceStatusAssigned:               PhaseIntake,
	DeviceStatusDiagnosisStarted:       PhaseDiagnosis,
	DeviceStatusAwaitingParts:          PhaseDiagnosis,
	DeviceStatusPartsArrived:           PhaseDiagnosis,
	DeviceStatusInRepair:               PhaseRepair,
	DeviceStatusInProgress:             PhaseRepair,
	DeviceStatusReassembledTesting:     PhaseRepair,
	DeviceStatusRepairComplete:         PhaseCompletion,
	DeviceStatusReturnedToCustomerCare: PhaseHandoff,
	DeviceStatusDone:                   PhaseTerminal,
	DeviceStatusFailed:                 PhaseTerminal,
}

// IsValid reports whether s is a member of the enumeration.
func (s DeviceStatus) IsValid() bool {
	_, ok := statusPhases[s]
	return ok
}

// Phase returns the lifecycle phase of s, PhaseUnknown for non-members.
func (s DeviceStatus) Phase() Phase {
	return statusPhases[s]
}

// IsTerminal reports whether s ends the repair lifecycle.
func (s DeviceStatus) IsTerminal() bool {
	return s.Phase() == PhaseTerminal
}

func (s DeviceStatus) String() string {
	return string(s)
}

var identifierPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// LooksLikeIdentifier reports whether a stored status value is a leaked UUID.
func LooksLikeIdentifier(raw string) bool {
	return identifierPattern.MatchString(raw)
}

// Device is the aggregate tracked through the repair lifecycle.
type Device struct {
	ID               string
	CustomerID       string
	Brand            string
	Model            string
	SerialNumber     string
	IssueDescription string
	AssignedTo       *string
	// Status holds the value exactly as stored; it is validated at every engine boundary.
	Status         DeviceStatus
	ExpectedReturn *time.Time
	Transitions    []DeviceTransition
	NeedsRecovery  bool
	// RecoveryAttemptedAt is set when recovery ran and the log could not
	// supply a valid status. Any later status write clears it.
	RecoveryAttemptedAt *time.Time
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Clone returns a copy whose transition slice can be appended without aliasing.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Transitions = append([]DeviceTransition(nil), d.Transitions...)
	if d.ExpectedReturn != nil {
		due := *d.ExpectedReturn
		cp.ExpectedReturn = &due
	}
	if d.AssignedTo != nil {
		assignee := *d.AssignedTo
		cp.AssignedTo = &assignee
	}
	if d.RecoveryAttemptedAt != nil {
		attempted := *d.RecoveryAttemptedAt
		cp.RecoveryAttemptedAt = &attempted
	}
	return &cp
}
