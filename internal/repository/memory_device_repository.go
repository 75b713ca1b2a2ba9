package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// MemoryDeviceStore keeps devices in process. It backs tests and runs without
// a configured database.
type MemoryDeviceStore struct {
	mu      sync.RWMutex
	devices map[string]*domain.Device
}

// NewMemoryDeviceStore returns an empty store.
func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{devices: make(map[string]*domain.Device)}
}

var (
	_ DeviceRepository           = (*MemoryDeviceStore)(nil)
	_ DeviceTransitionRepository = (*MemoryDeviceStore)(nil)
)

// Put stores a device as-is, bypassing validation. Used to seed records.
func (s *MemoryDeviceStore) Put(device *domain.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.ID] = device.Clone()
}

func (s *MemoryDeviceStore) Create(_ context.Context, device *domain.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[device.ID]; ok {
		return ErrDeviceExists
	}
	s.devices[device.ID] = device.Clone()
	return nil
}

func (s *MemoryDeviceStore) GetByID(_ context.Context, id string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return device.Clone(), nil
}

func (s *MemoryDeviceStore) List(_ context.Context, filter DeviceFilter) ([]domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[domain.DeviceStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		wanted[status] = struct{}{}
	}

	result := []domain.Device{}
	for _, device := range s.devices {
		if filter.CustomerID != nil && device.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssignedTo != nil && (device.AssignedTo == nil || *device.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[device.Status]; !ok {
				continue
			}
		}
		if filter.ActiveOnly && device.Status.IsTerminal() {
			continue
		}
		if filter.CorruptedOnly && !device.NeedsRecovery && device.Status.IsValid() {
			continue
		}
		if filter.SkipAttempted && device.RecoveryAttemptedAt != nil {
			continue
		}
		result = append(result, *device.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.Device{}, nil
	}
	result = result[offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryDeviceStore) SaveTransition(_ context.Context, deviceID string, expectedVersion int64, transition domain.DeviceTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	if device.Version != expectedVersion {
		return ErrVersionConflict
	}
	transition.DeviceID = deviceID
	device.Transitions = append(device.Transitions, transition)
	device.Status = transition.ToStatus
	device.NeedsRecovery = false
	device.RecoveryAttemptedAt = nil
	device.UpdatedAt = transition.Timestamp
	device.Version++
	return nil
}

func (s *MemoryDeviceStore) UpdateStatus(_ context.Context, deviceID string, expectedVersion int64, status domain.DeviceStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	if device.Version != expectedVersion {
		return ErrVersionConflict
	}
	device.Status = status
	device.NeedsRecovery = false
	device.RecoveryAttemptedAt = nil
	device.UpdatedAt = at
	device.Version++
	return nil
}

func (s *MemoryDeviceStore) FlagForRecovery(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	device.NeedsRecovery = true
	return nil
}

func (s *MemoryDeviceStore) MarkRecoveryAttempted(_ context.Context, deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	device.NeedsRecovery = true
	device.RecoveryAttemptedAt = &at
	return nil
}

// ListByDevice returns the stored log in insertion order.
func (s *MemoryDeviceStore) ListByDevice(_ context.Context, deviceID string) ([]domain.DeviceTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return append([]domain.DeviceTransition{}, device.Transitions...), nil
}
