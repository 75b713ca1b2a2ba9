package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

const (
	dashboardCacheKey = "repair:dashboard:counts"
	listPageSize      = 500
)

// ErrPersistenceFailure marks errors raised by the device store.
var ErrPersistenceFailure = errors.New("persistence failure")

// PersistenceError wraps a store failure with the device it concerned.
type PersistenceError struct {
	DeviceID string
	Op       string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.DeviceID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s device %s: %v", e.Op, e.DeviceID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistenceFailure) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Cache stores derived read models. persistence.Redis satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Actor identifies who requested a change.
type Actor struct {
	ID   string
	Role domain.Role
}

// LifecycleService coordinates device lifecycle workflows.
type LifecycleService struct {
	devices     repository.DeviceRepository
	transitions repository.DeviceTransitionRepository
	cache       Cache
	cacheTTL    time.Duration
	clock       Clock
	location    *time.Location
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	DeviceRepo     repository.DeviceRepository
	TransitionRepo repository.DeviceTransitionRepository
	Cache          Cache
	CacheTTL       time.Duration
	Clock          Clock
	Location       *time.Location
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// RegisterDeviceInput describes a device handed in at intake.
type RegisterDeviceInput struct {
	CustomerID       string
	Brand            string
	Model            string
	SerialNumber     string
	IssueDescription string
	AssignedTo       *string
	ExpectedReturn   *time.Time
	Note             string
}

// DeviceReport combines a device with the values derived from it at one instant.
type DeviceReport struct {
	Device    *domain.Device
	Overdue   *domain.OverdueClassification
	Durations domain.Durations
	Next      []domain.DeviceStatus
	// Corrupted is set when derived values could not be computed.
	Corrupted bool
	AsOf      time.Time
}

// RecoveryOutcome describes what RecoverCorruptedStatus did.
type RecoveryOutcome string

const (
	RecoveryHealthy  RecoveryOutcome = "healthy"
	RecoveryRestored RecoveryOutcome = "restored"
	RecoveryFlagged  RecoveryOutcome = "flagged"
)

// RecoveryResult reports a recovery attempt.
type RecoveryResult struct {
	DeviceID string
	Outcome  RecoveryOutcome
	Previous string
	Status   domain.DeviceStatus
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	svc := &LifecycleService{
		devices:     deps.DeviceRepo,
		transitions: deps.TransitionRepo,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		clock:       deps.Clock,
		location:    deps.Location,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
	if svc.clock == nil {
		svc.clock = SystemClock
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// RegisterDevice records a device at intake. Devices handed in with an
// assignee start at assigned, otherwise at pending.
func (s *LifecycleService) RegisterDevice(ctx context.Context, actor Actor, input RegisterDeviceInput) (*domain.Device, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.CustomerID) == "" {
		details["customer_id"] = "required"
	}
	if strings.TrimSpace(input.IssueDescription) == "" {
		details["issue_description"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid device", details)
	}

	now := s.clock.Now()
	device := &domain.Device{
		ID:               uuid.NewString(),
		CustomerID:       strings.TrimSpace(input.CustomerID),
		Brand:            strings.TrimSpace(input.Brand),
		Model:            strings.TrimSpace(input.Model),
		SerialNumber:     strings.TrimSpace(input.SerialNumber),
		IssueDescription: strings.TrimSpace(input.IssueDescription),
		AssignedTo:       input.AssignedTo,
		Status:           domain.DeviceStatusNone,
		ExpectedReturn:   input.ExpectedReturn,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	initial := domain.DeviceStatusPending
	if input.AssignedTo != nil && strings.TrimSpace(*input.AssignedTo) != "" {
		initial = domain.DeviceStatusAssigned
	}
	transition, err := lifecycle.InitialTransition(device, initial, now)
	if err != nil {
		return nil, err
	}
	transition.ActorID = actorID(actor)
	transition.Note = strings.TrimSpace(input.Note)
	if err := lifecycle.Append(device, transition); err != nil {
		return nil, err
	}

	if err := s.devices.Create(ctx, device); err != nil {
		return nil, s.persistenceError("create", device.ID, err)
	}
	s.invalidateDashboard(ctx)
	s.metrics.RecordTransition(string(transition.FromStatus), string(transition.ToStatus))
	s.logger.Info("device registered",
		zap.String("device_id", device.ID),
		zap.String("status", string(device.Status)))
	return device, nil
}

// SubmitTransition validates and applies a status change and returns the
// refreshed device. Validation failures are returned as *lifecycle.TransitionError;
// store failures as *PersistenceError.
func (s *LifecycleService) SubmitTransition(ctx context.Context, deviceID string, to domain.DeviceStatus, actor Actor, note string) (*domain.Device, error) {
	now := s.clock.Now()
	device, err := s.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	transition, err := lifecycle.AttemptTransition(device, to, now)
	if err != nil {
		if lifecycle.IsCorrupted(err) {
			s.flagCorrupted(ctx, device)
		}
		return nil, err
	}
	transition.ActorID = actorID(actor)
	transition.Note = strings.TrimSpace(note)

	expectedVersion := device.Version
	if err := lifecycle.Append(device, transition); err != nil {
		return nil, err
	}
	if err := s.devices.SaveTransition(ctx, deviceID, expectedVersion, transition); err != nil {
		return nil, s.persistenceError("save transition", deviceID, err)
	}
	device.Version = expectedVersion + 1
	device.NeedsRecovery = false

	s.invalidateDashboard(ctx)
	s.metrics.RecordTransition(string(transition.FromStatus), string(transition.ToStatus))
	s.logger.Info("device status changed",
		zap.String("device_id", deviceID),
		zap.String("from", string(transition.FromStatus)),
		zap.String("status", string(transition.ToStatus)),
		zap.String("actor_id", actor.ID))
	return device, nil
}

// GetOverdueStatus classifies a device against the current time.
func (s *LifecycleService) GetOverdueStatus(device *domain.Device) (domain.OverdueClassification, error) {
	return lifecycle.Classify(device, s.clock.Now(), s.location)
}

// GetDurations reports technician and handover time for a device.
func (s *LifecycleService) GetDurations(device *domain.Device) domain.Durations {
	return lifecycle.PhaseDurations(device, s.clock.Now())
}

// DashboardCounts summarizes devices against a single reading of the clock.
func (s *LifecycleService) DashboardCounts(devices []*domain.Device) domain.DashboardCounts {
	return lifecycle.Summarize(devices, s.clock.Now(), s.location)
}

// GetDevice loads a device with its transition log.
func (s *LifecycleService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.load(ctx, deviceID)
}

// Inspect loads a device and derives its overdue state, durations and next
// statuses from one clock reading. Corrupted devices are returned with
// Corrupted set instead of an error so callers can still show the record.
func (s *LifecycleService) Inspect(ctx context.Context, deviceID string) (*DeviceReport, error) {
	now := s.clock.Now()
	device, err := s.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	report := &DeviceReport{Device: device, AsOf: now, Next: []domain.DeviceStatus{}}
	class, err := lifecycle.Classify(device, now, s.location)
	if err != nil {
		if !lifecycle.IsCorrupted(err) {
			return nil, err
		}
		report.Corrupted = true
		return report, nil
	}
	report.Overdue = &class
	report.Durations = lifecycle.PhaseDurations(device, now)
	report.Next = lifecycle.NextStatuses(device.Status)
	return report, nil
}

// ListDevices returns devices matching filter.
func (s *LifecycleService) ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]domain.Device, error) {
	devices, err := s.devices.List(ctx, filter)
	if err != nil {
		return nil, s.persistenceError("list", "", err)
	}
	return devices, nil
}

// History returns the transition log of a device, oldest first.
func (s *LifecycleService) History(ctx context.Context, deviceID string) ([]domain.DeviceTransition, error) {
	transitions, err := s.transitions.ListByDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, s.persistenceError("list transitions", deviceID, err)
	}
	return lifecycle.History(&domain.Device{ID: deviceID, Transitions: transitions}), nil
}

// NextStatuses lists the statuses a device may move to from its current one.
func (s *LifecycleService) NextStatuses(ctx context.Context, deviceID string) ([]domain.DeviceStatus, error) {
	device, err := s.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	status, err := lifecycle.ParseStatus(device.ID, string(device.Status))
	if err != nil {
		return nil, err
	}
	return lifecycle.NextStatuses(status), nil
}

// RecoverCorruptedStatus restores a corrupted status from the last recorded
// transition. When the log cannot supply a valid status the device is flagged
// for manual intervention.
func (s *LifecycleService) RecoverCorruptedStatus(ctx context.Context, deviceID string) (RecoveryResult, error) {
	now := s.clock.Now()
	device, err := s.load(ctx, deviceID)
	if err != nil {
		return RecoveryResult{}, err
	}
	result := RecoveryResult{DeviceID: deviceID, Previous: string(device.Status)}

	history := lifecycle.History(device)
	if device.Status.IsValid() && !device.NeedsRecovery {
		result.Outcome = RecoveryHealthy
		result.Status = device.Status
		return result, nil
	}

	var restored domain.DeviceStatus
	if len(history) > 0 {
		last := history[len(history)-1].ToStatus
		if last.IsValid() {
			restored = last
		}
	}

	if restored == "" {
		if err := s.devices.MarkRecoveryAttempted(ctx, deviceID, now); err != nil {
			s.metrics.RecordRecovery("failed")
			return RecoveryResult{}, s.persistenceError("flag", deviceID, err)
		}
		s.metrics.RecordRecovery(string(RecoveryFlagged))
		s.logger.Warn("device status needs manual recovery",
			zap.String("device_id", deviceID),
			zap.String("status", result.Previous),
			zap.Bool("identifier_leak", domain.LooksLikeIdentifier(result.Previous)),
			zap.Int("transitions", len(history)))
		result.Outcome = RecoveryFlagged
		return result, nil
	}

	if err := s.devices.UpdateStatus(ctx, deviceID, device.Version, restored, now); err != nil {
		s.metrics.RecordRecovery("failed")
		return RecoveryResult{}, s.persistenceError("restore status", deviceID, err)
	}
	s.invalidateDashboard(ctx)
	s.metrics.RecordRecovery(string(RecoveryRestored))
	s.logger.Info("device status restored from history",
		zap.String("device_id", deviceID),
		zap.String("previous", result.Previous),
		zap.String("status", string(restored)))
	result.Outcome = RecoveryRestored
	result.Status = restored
	return result, nil
}

// Dashboard counts open devices, serving cached counts while fresh.
func (s *LifecycleService) Dashboard(ctx context.Context) (domain.DashboardCounts, error) {
	var counts domain.DashboardCounts
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.GetJSON(ctx, dashboardCacheKey, &counts); err == nil {
			return counts, nil
		}
	}

	devices, err := s.listAll(ctx, repository.DeviceFilter{ActiveOnly: true})
	if err != nil {
		return domain.DashboardCounts{}, err
	}
	counts = s.DashboardCounts(devices)

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, dashboardCacheKey, counts, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}

func (s *LifecycleService) listAll(ctx context.Context, filter repository.DeviceFilter) ([]*domain.Device, error) {
	result := []*domain.Device{}
	filter.Limit = listPageSize
	for offset := 0; ; offset += listPageSize {
		filter.Offset = offset
		page, err := s.devices.List(ctx, filter)
		if err != nil {
			return nil, s.persistenceError("list", "", err)
		}
		for i := range page {
			result = append(result, &page[i])
		}
		if len(page) < listPageSize {
			return result, nil
		}
	}
}

func (s *LifecycleService) load(ctx context.Context, deviceID string) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, s.persistenceError("load", deviceID, err)
	}
	return device, nil
}

func (s *LifecycleService) flagCorrupted(ctx context.Context, device *domain.Device) {
	s.logger.Warn("corrupted device status",
		zap.String("device_id", device.ID),
		zap.String("status", string(device.Status)),
		zap.Bool("identifier_leak", domain.LooksLikeIdentifier(string(device.Status))))
	if device.NeedsRecovery {
		return
	}
	if err := s.devices.FlagForRecovery(ctx, device.ID); err != nil {
		s.logger.Error("flag device for recovery", zap.String("device_id", device.ID), zap.Error(err))
	}
}

func (s *LifecycleService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *LifecycleService) persistenceError(op, deviceID string, err error) error {
	s.logger.Error("device store failure",
		zap.String("op", op),
		zap.String("device_id", deviceID),
		zap.Error(err))
	return &PersistenceError{DeviceID: deviceID, Op: op, Err: err}
}

func actorID(actor Actor) *string {
	if actor.ID == "" {
		return nil
	}
	id := actor.ID
	return &id
}
