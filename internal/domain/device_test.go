package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/repair-service/internal/domain"
)

func TestDeviceStatusMembership(t *testing.T) {
	t.Parallel()

	for _, status := range domain.DeviceStatuses {
		assert.True(t, status.IsValid(), status)
		assert.NotEqual(t, domain.PhaseUnknown, status.Phase(), status)
	}
	for _, raw := range []string{"", "none", "Assigned", " assigned", "in_repair"} {
		assert.False(t, domain.DeviceStatus(raw).IsValid(), raw)
	}
	assert.True(t, domain.DeviceStatusFailed.IsTerminal())
	assert.False(t, domain.DeviceStatusReturnedToCustomerCare.IsTerminal())
	assert.Equal(t, "handoff", domain.DeviceStatusReturnedToCustomerCare.Phase().String())
	assert.Equal(t, "unknown", domain.Phase(42).String())
}

func TestLooksLikeIdentifier(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.LooksLikeIdentifier("9b2f0c1e-3d4a-4b5c-8d6e-7f8091a2b3c4"))
	assert.False(t, domain.LooksLikeIdentifier("in-repair"))
	assert.False(t, domain.LooksLikeIdentifier("9b2f0c1e3d4a4b5c8d6e7f8091a2b3c4"))
}

func TestDeviceClone(t *testing.T) {
	t.Parallel()

	due := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	assignee := "tech-1"
	original := &domain.Device{
		ID:             "dev-1",
		AssignedTo:     &assignee,
		ExpectedReturn: &due,
		Transitions:    []domain.DeviceTransition{{ID: "t1"}},
	}

	cp := original.Clone()
	cp.Transitions = append(cp.Transitions, domain.DeviceTransition{ID: "t2"})
	*cp.ExpectedReturn = due.Add(time.Hour)
	*cp.AssignedTo = "tech-2"

	assert.Len(t, original.Transitions, 1)
	assert.Equal(t, due, *original.ExpectedReturn)
	assert.Equal(t, "tech-1", *original.AssignedTo)

	var nilDevice *domain.Device
	assert.Nil(t, nilDevice.Clone())
}
