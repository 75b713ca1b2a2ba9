package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
)

func TestAppend_RoundTrip(t *testing.T) {
	t.Parallel()

	device := newDevice(domain.DeviceStatusAssigned,
		tr(domain.DeviceStatusNone, domain.DeviceStatusPending, at(0)),
		tr(domain.DeviceStatusPending, domain.DeviceStatusAssigned, at(time.Hour)),
	)
	before := lifecycle.History(device)

	transition, err := lifecycle.AttemptTransition(device, domain.DeviceStatusDiagnosisStarted, at(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, lifecycle.Append(device, transition))

	history := lifecycle.History(device)
	require.Len(t, history, len(before)+1)
	assert.Equal(t, before, history[:len(before)])
	assert.Equal(t, transition, history[len(history)-1])
	assert.Equal(t, domain.DeviceStatusDiagnosisStarted, device.Status)
	assert.Equal(t, at(2*time.Hour), device.UpdatedAt)
}

func TestAppend_Initial(t *testing.T) {
	t.Parallel()

	device := newDevice("")
	transition, err := lifecycle.InitialTransition(device, domain.DeviceStatusPending, at(0))
	require.NoError(t, err)

	require.NoError(t, lifecycle.Append(device, transition))
	assert.Equal(t, domain.DeviceStatusPending, device.Status)

	assert.ErrorIs(t, lifecycle.Append(device, transition), lifecycle.ErrStaleTransition)
}

func TestAppend_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transition domain.DeviceTransition
		wantErr    error
	}{
		{
			name:       "timestamp before last record",
			transition: tr(domain.DeviceStatusAssigned, domain.DeviceStatusInRepair, at(30*time.Minute)),
			wantErr:    lifecycle.ErrOutOfOrder,
		},
		{
			name:       "from status does not match device",
			transition: tr(domain.DeviceStatusPending, domain.DeviceStatusInRepair, at(2*time.Hour)),
			wantErr:    lifecycle.ErrStaleTransition,
		},
		{
			name: "other device",
			transition: domain.DeviceTransition{
				DeviceID: "dev-2", FromStatus: domain.DeviceStatusAssigned,
				ToStatus: domain.DeviceStatusInRepair, Timestamp: at(2 * time.Hour),
			},
			wantErr: lifecycle.ErrForeignTransition,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			device := newDevice(domain.DeviceStatusAssigned,
				tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(time.Hour)),
			)

			err := lifecycle.Append(device, tt.transition)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, device.Transitions, 1)
			assert.Equal(t, domain.DeviceStatusAssigned, device.Status)
		})
	}

	assert.ErrorIs(t, lifecycle.Append(nil, domain.DeviceTransition{}), lifecycle.ErrNilDevice)
}

func TestHistory_SortsStably(t *testing.T) {
	t.Parallel()

	first := tr(domain.DeviceStatusNone, domain.DeviceStatusAssigned, at(0))
	second := tr(domain.DeviceStatusAssigned, domain.DeviceStatusInRepair, at(time.Hour))
	second.Note = "a"
	third := tr(domain.DeviceStatusInRepair, domain.DeviceStatusReassembledTesting, at(time.Hour))
	third.Note = "b"
	device := newDevice(domain.DeviceStatusReassembledTesting, second, first, third)

	history := lifecycle.History(device)

	require.Len(t, history, 3)
	assert.Equal(t, []domain.DeviceTransition{first, second, third}, history)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
	assert.Equal(t, second, device.Transitions[0], "history must not reorder the stored log")
	assert.Empty(t, lifecycle.History(nil))
}
