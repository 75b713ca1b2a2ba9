package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

var t0 = time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)

func device(id string, status domain.DeviceStatus, updated time.Time) *domain.Device {
	return &domain.Device{ID: id, CustomerID: "cust-" + id, Status: status, UpdatedAt: updated}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryDeviceStore()

	d := device("a", domain.DeviceStatusPending, t0)
	require.NoError(t, store.Create(ctx, d))
	assert.ErrorIs(t, store.Create(ctx, d), repository.ErrDeviceExists)

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Status = domain.DeviceStatusDone

	again, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusPending, again.Status, "returned records must not alias stored ones")

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrDeviceNotFound)
}

func TestMemoryStore_SaveTransitionChecksVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryDeviceStore()
	store.Put(device("a", domain.DeviceStatusAssigned, t0))

	transition := domain.DeviceTransition{
		ID:         "t1",
		FromStatus: domain.DeviceStatusAssigned,
		ToStatus:   domain.DeviceStatusDiagnosisStarted,
		Timestamp:  t0.Add(time.Hour),
	}
	require.NoError(t, store.SaveTransition(ctx, "a", 0, transition))
	assert.ErrorIs(t, store.SaveTransition(ctx, "a", 0, transition), repository.ErrVersionConflict)

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceStatusDiagnosisStarted, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, t0.Add(time.Hour), got.UpdatedAt)

	log, err := store.ListByDevice(ctx, "a")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "a", log[0].DeviceID)
}

func TestMemoryStore_UpdateStatusClearsRecoveryFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryDeviceStore()
	store.Put(device("a", "garbage", t0))

	require.NoError(t, store.FlagForRecovery(ctx, "a"))
	flagged, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, flagged.NeedsRecovery)

	require.NoError(t, store.UpdateStatus(ctx, "a", 0, domain.DeviceStatusInRepair, t0.Add(time.Minute)))
	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, got.NeedsRecovery)
	assert.Equal(t, domain.DeviceStatusInRepair, got.Status)

	assert.ErrorIs(t, store.FlagForRecovery(ctx, "missing"), repository.ErrDeviceNotFound)
}

func TestMemoryStore_RecoveryAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryDeviceStore()
	store.Put(device("a", "garbage", t0))
	store.Put(device("b", "garbage", t0.Add(time.Hour)))

	require.NoError(t, store.MarkRecoveryAttempted(ctx, "b", t0.Add(2*time.Hour)))
	assert.ErrorIs(t, store.MarkRecoveryAttempted(ctx, "missing", t0), repository.ErrDeviceNotFound)

	pending, err := store.List(ctx, repository.DeviceFilter{CorruptedOnly: true, SkipAttempted: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	all, err := store.List(ctx, repository.DeviceFilter{CorruptedOnly: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.UpdateStatus(ctx, "b", 0, domain.DeviceStatusPending, t0.Add(3*time.Hour)))
	got, err := store.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got.RecoveryAttemptedAt)
	assert.False(t, got.NeedsRecovery)
}

func TestMemoryStore_ListFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryDeviceStore()
	store.Put(device("a", domain.DeviceStatusAssigned, t0))
	store.Put(device("b", domain.DeviceStatusDone, t0.Add(time.Hour)))
	store.Put(device("c", "e3b0c442-98fc-1c14-9afb-f4c8996fb924", t0.Add(2*time.Hour)))
	store.Put(device("d", domain.DeviceStatusInRepair, t0.Add(3*time.Hour)))

	ids := func(devices []domain.Device) []string {
		out := make([]string, 0, len(devices))
		for _, d := range devices {
			out = append(out, d.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter repository.DeviceFilter
		want   []string
	}{
		{"all newest first", repository.DeviceFilter{}, []string{"d", "c", "b", "a"}},
		{"active", repository.DeviceFilter{ActiveOnly: true}, []string{"d", "c", "a"}},
		{"corrupted", repository.DeviceFilter{CorruptedOnly: true}, []string{"c"}},
		{"statuses", repository.DeviceFilter{Statuses: []domain.DeviceStatus{domain.DeviceStatusAssigned, domain.DeviceStatusDone}}, []string{"b", "a"}},
		{"page", repository.DeviceFilter{Limit: 2, Offset: 1}, []string{"c", "b"}},
		{"past end", repository.DeviceFilter{Offset: 10}, []string{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := store.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
