package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrVersionConflict  = errors.New("device was modified concurrently")
	ErrDeviceExists     = errors.New("device already exists")
	ErrStoreUnavailable = errors.New("device store not configured")
)

// DeviceFilter captures listing parameters.
type DeviceFilter struct {
	CustomerID *string
	AssignedTo *string
	Statuses   []domain.DeviceStatus
	// ActiveOnly excludes terminal statuses.
	ActiveOnly bool
	// CorruptedOnly keeps records whose status is outside the enumeration or
	// that were flagged for recovery.
	CorruptedOnly bool
	// SkipAttempted drops records whose recovery already ran without a result.
	SkipAttempted bool
	Limit         int
	Offset        int
}

// DeviceRepository is the persistence collaborator of the lifecycle engine.
// SaveTransition must append the transition and move the device status as one
// atomic step guarded by expectedVersion.
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	List(ctx context.Context, filter DeviceFilter) ([]domain.Device, error)
	SaveTransition(ctx context.Context, deviceID string, expectedVersion int64, transition domain.DeviceTransition) error
	UpdateStatus(ctx context.Context, deviceID string, expectedVersion int64, status domain.DeviceStatus, at time.Time) error
	FlagForRecovery(ctx context.Context, deviceID string) error
	MarkRecoveryAttempted(ctx context.Context, deviceID string, at time.Time) error
}

type deviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository instantiates repository.
func NewDeviceRepository(pool *pgxpool.Pool) DeviceRepository {
	return &deviceRepository{pool: pool}
}

const deviceColumns = `id, customer_id, brand, model, serial_number, issue_description, assigned_to,
               status, expected_return, needs_recovery, recovery_attempted_at, version, created_at, updated_at`

const uniqueViolation = "23505"

// Create inserts the device together with its intake transitions.
func (r *deviceRepository) Create(ctx context.Context, device *domain.Device) error {
	if r.pool == nil {
		return ErrStoreUnavailable
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO devices (id, customer_id, brand, model, serial_number, issue_description, assigned_to,
            status, expected_return, needs_recovery, recovery_attempted_at, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	if _, err := tx.Exec(ctx, query,
		device.ID,
		device.CustomerID,
		device.Brand,
		device.Model,
		device.SerialNumber,
		device.IssueDescription,
		device.AssignedTo,
		device.Status,
		device.ExpectedReturn,
		device.NeedsRecovery,
		device.RecoveryAttemptedAt,
		device.Version,
		device.CreatedAt,
		device.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDeviceExists
		}
		return fmt.Errorf("insert device: %w", err)
	}
	for i := range device.Transitions {
		if err := insertTransition(ctx, tx, &device.Transitions[i]); err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	if r.pool == nil {
		return nil, ErrStoreUnavailable
	}
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id=$1`
	device, err := scanDevice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	transitions, err := listTransitions(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	device.Transitions = transitions
	return device, nil
}

func (r *deviceRepository) List(ctx context.Context, filter DeviceFilter) ([]domain.Device, error) {
	if r.pool == nil {
		return nil, ErrStoreUnavailable
	}
	base := `SELECT ` + deviceColumns + ` FROM devices`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(&args, filter.Statuses)+")")
	}
	if filter.ActiveOnly {
		terminal := []domain.DeviceStatus{domain.DeviceStatusDone, domain.DeviceStatusFailed}
		clauses = append(clauses, "status NOT IN ("+placeholders(&args, terminal)+")")
	}
	if filter.CorruptedOnly {
		clauses = append(clauses, "(needs_recovery OR status NOT IN ("+placeholders(&args, domain.DeviceStatuses)+"))")
	}
	if filter.SkipAttempted {
		clauses = append(clauses, "recovery_attempted_at IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	devices, err := scanDevices(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return devices, nil
	}

	ids := make([]string, len(devices))
	for i := range devices {
		ids[i] = devices[i].ID
	}
	byDevice, err := listTransitionsFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if transitions, ok := byDevice[devices[i].ID]; ok {
			devices[i].Transitions = transitions
		} else {
			devices[i].Transitions = []domain.DeviceTransition{}
		}
	}
	return devices, nil
}

func (r *deviceRepository) SaveTransition(ctx context.Context, deviceID string, expectedVersion int64, transition domain.DeviceTransition) error {
	if r.pool == nil {
		return ErrStoreUnavailable
	}
	return r.withLockedDevice(ctx, deviceID, expectedVersion, func(tx pgx.Tx) error {
		if err := insertTransition(ctx, tx, &transition); err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
		const update = `
            UPDATE devices SET status=$1, needs_recovery=FALSE, recovery_attempted_at=NULL, version=version+1, updated_at=$2
            WHERE id=$3`
		_, err := tx.Exec(ctx, update, transition.ToStatus, transition.Timestamp, deviceID)
		return err
	})
}

func (r *deviceRepository) UpdateStatus(ctx context.Context, deviceID string, expectedVersion int64, status domain.DeviceStatus, at time.Time) error {
	if r.pool == nil {
		return ErrStoreUnavailable
	}
	return r.withLockedDevice(ctx, deviceID, expectedVersion, func(tx pgx.Tx) error {
		const update = `
            UPDATE devices SET status=$1, needs_recovery=FALSE, recovery_attempted_at=NULL, version=version+1, updated_at=$2
            WHERE id=$3`
		_, err := tx.Exec(ctx, update, status, at, deviceID)
		return err
	})
}

func (r *deviceRepository) FlagForRecovery(ctx context.Context, deviceID string) error {
	if r.pool == nil {
		return ErrStoreUnavailable
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE devices SET needs_recovery=TRUE WHERE id=$1`, deviceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *deviceRepository) MarkRecoveryAttempted(ctx context.Context, deviceID string, at time.Time) error {
	if r.pool == nil {
		return ErrStoreUnavailable
	}
	const update = `UPDATE devices SET needs_recovery=TRUE, recovery_attempted_at=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, update, at, deviceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// withLockedDevice takes a row lock on the device and checks its version
// before running fn in the same transaction.
func (r *deviceRepository) withLockedDevice(ctx context.Context, deviceID string, expectedVersion int64, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var version int64
	if err := tx.QueryRow(ctx, `SELECT version FROM devices WHERE id=$1 FOR UPDATE`, deviceID).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDeviceNotFound
		}
		return err
	}
	if version != expectedVersion {
		return ErrVersionConflict
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func placeholders(args *[]any, statuses []domain.DeviceStatus) string {
	parts := make([]string, len(statuses))
	for i, status := range statuses {
		*args = append(*args, status)
		parts[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(parts, ",")
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var device domain.Device
	if err := row.Scan(
		&device.ID,
		&device.CustomerID,
		&device.Brand,
		&device.Model,
		&device.SerialNumber,
		&device.IssueDescription,
		&device.AssignedTo,
		&device.Status,
		&device.ExpectedReturn,
		&device.NeedsRecovery,
		&device.RecoveryAttemptedAt,
		&device.Version,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &device, nil
}

func scanDevices(rows pgx.Rows) ([]domain.Device, error) {
	result := []domain.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *device)
	}
	return result, rows.Err()
}
