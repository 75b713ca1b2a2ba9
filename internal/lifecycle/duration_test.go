package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
)

func TestPhaseDuration_SumsRepeatedWindows(t *testing.T) {
	t.Parallel()

	t0, t1, t2, t3 := at(0), at(3*time.Hour), at(5*time.Hour), at(6*time.Hour+30*time.Minute)
	device := newDevice(domain.DeviceStatusRepairComplete,
		tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, t0),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, t1),
		tr(domain.DeviceStatusRepairComplete, domain.DeviceStatusAssigned, t2),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, t3),
	)

	got := lifecycle.PhaseDuration(device, domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, at(48*time.Hour))

	assert.Equal(t, t1.Sub(t0)+t3.Sub(t2), got)
	assert.Equal(t, got, lifecycle.DurationBetween(device, domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, at(48*time.Hour)))
}

func TestPhaseDuration_SpansIntermediateStatuses(t *testing.T) {
	t.Parallel()

	device := newDevice(domain.DeviceStatusReturnedToCustomerCare,
		tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(0)),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusDiagnosisStarted, at(time.Hour)),
		tr(domain.DeviceStatusDiagnosisStarted, domain.DeviceStatusInRepair, at(2*time.Hour)),
		tr(domain.DeviceStatusInRepair, domain.DeviceStatusReassembledTesting, at(4*time.Hour)),
		tr(domain.DeviceStatusReassembledTesting, domain.DeviceStatusRepairComplete, at(5*time.Hour)),
		tr(domain.DeviceStatusRepairComplete, domain.DeviceStatusReturnedToCustomerCare, at(7*time.Hour)),
	)

	durations := lifecycle.PhaseDurations(device, at(10*time.Hour))

	assert.Equal(t, 5*time.Hour, durations.Technician)
	assert.Equal(t, 2*time.Hour, durations.Handover)
}

func TestPhaseDuration_OpenWindow(t *testing.T) {
	t.Parallel()

	device := newDevice(domain.DeviceStatusInRepair,
		tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(0)),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusInRepair, at(time.Hour)),
	)
	device.UpdatedAt = at(time.Hour)

	assert.Equal(t, 4*time.Hour, lifecycle.TechnicianDuration(device, at(4*time.Hour)))
	assert.Equal(t, time.Hour, lifecycle.TechnicianDuration(device, time.Time{}), "zero now falls back to UpdatedAt")
	assert.Zero(t, lifecycle.HandoverDuration(device, at(4*time.Hour)))
}

func TestPhaseDuration_TerminalClosesWindow(t *testing.T) {
	t.Parallel()

	device := newDevice(domain.DeviceStatusFailed,
		tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(0)),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusInRepair, at(time.Hour)),
		tr(domain.DeviceStatusInRepair, domain.DeviceStatusFailed, at(3*time.Hour)),
	)

	assert.Equal(t, 3*time.Hour, lifecycle.TechnicianDuration(device, at(100*time.Hour)))
}

func TestPhaseDuration_Deterministic(t *testing.T) {
	t.Parallel()

	device := newDevice(domain.DeviceStatusInRepair,
		tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(0)),
		tr(domain.DeviceStatusAssigned, domain.DeviceStatusInRepair, at(time.Hour)),
	)
	now := at(90 * time.Minute)

	assert.Equal(t, lifecycle.PhaseDurations(device, now), lifecycle.PhaseDurations(device, now))
	assert.Zero(t, lifecycle.PhaseDuration(nil, domain.DeviceStatusAssigned, domain.DeviceStatusRepairComplete, now))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-5 * time.Second, "0s"},
		{59*time.Second + 900*time.Millisecond, "59s"},
		{60 * time.Second, "1m"},
		{59*time.Minute + 59*time.Second, "59m"},
		{time.Hour, "1h"},
		{49*time.Hour + 59*time.Minute, "49h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lifecycle.FormatDuration(tt.in), tt.in.String())
	}
}
