package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// DeviceTransitionRepository reads the append-only transition log. Records
// are only written through DeviceRepository so status and log move together.
type DeviceTransitionRepository interface {
	ListByDevice(ctx context.Context, deviceID string) ([]domain.DeviceTransition, error)
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type deviceTransitionRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceTransitionRepository builds repository.
func NewDeviceTransitionRepository(pool *pgxpool.Pool) DeviceTransitionRepository {
	return &deviceTransitionRepository{pool: pool}
}

func (r *deviceTransitionRepository) ListByDevice(ctx context.Context, deviceID string) ([]domain.DeviceTransition, error) {
	if r.pool == nil {
		return nil, ErrStoreUnavailable
	}
	transitions, err := listTransitions(ctx, r.pool, deviceID)
	if err != nil {
		return nil, err
	}
	if len(transitions) > 0 {
		return transitions, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM devices WHERE id=$1)`, deviceID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrDeviceNotFound
	}
	return transitions, nil
}

func insertTransition(ctx context.Context, q querier, transition *domain.DeviceTransition) error {
	const query = `
        INSERT INTO device_transitions (id, device_id, from_status, to_status, actor_id, note, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING seq`
	var seq int64
	return q.QueryRow(ctx, query,
		transition.ID,
		transition.DeviceID,
		transition.FromStatus,
		transition.ToStatus,
		transition.ActorID,
		transition.Note,
		transition.Timestamp,
	).Scan(&seq)
}

const transitionColumns = `id, device_id, from_status, to_status, actor_id, note, occurred_at`

func listTransitions(ctx context.Context, q querier, deviceID string) ([]domain.DeviceTransition, error) {
	query := `SELECT ` + transitionColumns + `
        FROM device_transitions WHERE device_id=$1 ORDER BY occurred_at ASC, seq ASC`
	rows, err := q.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransitions(rows)
}

// listTransitionsFor loads the logs of several devices in one round-trip,
// keyed by device id and kept in log order.
func listTransitionsFor(ctx context.Context, q querier, deviceIDs []string) (map[string][]domain.DeviceTransition, error) {
	query := `SELECT ` + transitionColumns + `
        FROM device_transitions WHERE device_id = ANY($1) ORDER BY device_id, occurred_at ASC, seq ASC`
	rows, err := q.Query(ctx, query, deviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions, err := scanTransitions(rows)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]domain.DeviceTransition, len(deviceIDs))
	for _, transition := range transitions {
		result[transition.DeviceID] = append(result[transition.DeviceID], transition)
	}
	return result, nil
}

func scanTransitions(rows pgx.Rows) ([]domain.DeviceTransition, error) {
	result := []domain.DeviceTransition{}
	for rows.Next() {
		var transition domain.DeviceTransition
		if err := rows.Scan(
			&transition.ID,
			&transition.DeviceID,
			&transition.FromStatus,
			&transition.ToStatus,
			&transition.ActorID,
			&transition.Note,
			&transition.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, transition)
	}
	return result, rows.Err()
}
