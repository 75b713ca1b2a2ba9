//go:build container
// +build container

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
)

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "repair",
			"POSTGRES_PASSWORD": "repair",
			"POSTGRES_DB":       "repair",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://repair:repair@%s:%s/repair?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	return pool
}

func seeded(id string, status domain.DeviceStatus, updated time.Time, transitions ...domain.DeviceTransition) *domain.Device {
	d := device(id, status, updated)
	d.CreatedAt = updated
	for i := range transitions {
		transitions[i].DeviceID = id
	}
	d.Transitions = transitions
	return d
}

func TestDeviceRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	devices := repository.NewDeviceRepository(pool)
	transitions := repository.NewDeviceTransitionRepository(pool)

	t.Run("duplicate id", func(t *testing.T) {
		d := seeded("dup", domain.DeviceStatusPending, t0)
		require.NoError(t, devices.Create(ctx, d))
		assert.ErrorIs(t, devices.Create(ctx, d), repository.ErrDeviceExists)
	})

	t.Run("history of unknown device", func(t *testing.T) {
		_, err := transitions.ListByDevice(ctx, "nobody")
		assert.ErrorIs(t, err, repository.ErrDeviceNotFound)

		require.NoError(t, devices.Create(ctx, seeded("empty-log", domain.DeviceStatusPending, t0)))
		log, err := transitions.ListByDevice(ctx, "empty-log")
		require.NoError(t, err)
		assert.Empty(t, log)
	})

	t.Run("list attaches each log in order", func(t *testing.T) {
		require.NoError(t, devices.Create(ctx, seeded("list-a", domain.DeviceStatusDiagnosisStarted, t0.Add(10*time.Hour),
			domain.DeviceTransition{ID: "la-1", FromStatus: domain.DeviceStatusNone, ToStatus: domain.DeviceStatusAssigned, Timestamp: t0},
			domain.DeviceTransition{ID: "la-2", FromStatus: domain.DeviceStatusAssigned, ToStatus: domain.DeviceStatusDiagnosisStarted, Timestamp: t0.Add(time.Hour)},
		)))
		require.NoError(t, devices.Create(ctx, seeded("list-b", domain.DeviceStatusPending, t0.Add(11*time.Hour),
			domain.DeviceTransition{ID: "lb-1", FromStatus: domain.DeviceStatusNone, ToStatus: domain.DeviceStatusPending, Timestamp: t0},
		)))

		cust := "cust-list-a"
		got, err := devices.List(ctx, repository.DeviceFilter{CustomerID: &cust})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Len(t, got[0].Transitions, 2)
		assert.Equal(t, "la-1", got[0].Transitions[0].ID)
		assert.Equal(t, "la-2", got[0].Transitions[1].ID)

		got, err = devices.List(ctx, repository.DeviceFilter{Statuses: []domain.DeviceStatus{domain.DeviceStatusPending}})
		require.NoError(t, err)
		for _, d := range got {
			if d.ID == "list-b" {
				require.Len(t, d.Transitions, 1)
				assert.Equal(t, "lb-1", d.Transitions[0].ID)
			}
			if d.ID == "empty-log" {
				assert.Empty(t, d.Transitions)
			}
		}
	})

	t.Run("attempted recovery leaves the sweep set", func(t *testing.T) {
		require.NoError(t, devices.Create(ctx, seeded("broken-1", "garbage", t0.Add(20*time.Hour))))
		require.NoError(t, devices.Create(ctx, seeded("broken-2", "garbage", t0.Add(21*time.Hour))))

		require.NoError(t, devices.MarkRecoveryAttempted(ctx, "broken-2", t0.Add(22*time.Hour)))
		assert.ErrorIs(t, devices.MarkRecoveryAttempted(ctx, "nobody", t0), repository.ErrDeviceNotFound)

		pending, err := devices.List(ctx, repository.DeviceFilter{CorruptedOnly: true, SkipAttempted: true})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "broken-1", pending[0].ID)

		require.NoError(t, devices.UpdateStatus(ctx, "broken-2", 0, domain.DeviceStatusPending, t0.Add(23*time.Hour)))
		restored, err := devices.GetByID(ctx, "broken-2")
		require.NoError(t, err)
		assert.Nil(t, restored.RecoveryAttemptedAt)
		assert.False(t, restored.NeedsRecovery)
	})
}
