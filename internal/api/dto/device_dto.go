package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// RegisterDeviceRequest payload.
type RegisterDeviceRequest struct {
	CustomerID       string     `json:"customer_id"`
	Brand            string     `json:"brand"`
	Model            string     `json:"model"`
	SerialNumber     string     `json:"serial_number"`
	IssueDescription string     `json:"issue_description"`
	AssignedTo       *string    `json:"assigned_to"`
	ExpectedReturn   *time.Time `json:"expected_return"`
	Note             string     `json:"note"`
}

// SubmitTransitionRequest payload.
type SubmitTransitionRequest struct {
	To   domain.DeviceStatus `json:"to"`
	Note string              `json:"note"`
}

// DeviceSummary response.
type DeviceSummary struct {
	ID             string     `json:"id"`
	CustomerID     string     `json:"customer_id"`
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	SerialNumber   string     `json:"serial_number"`
	AssignedTo     *string    `json:"assigned_to"`
	Status         string     `json:"status"`
	ExpectedReturn *time.Time `json:"expected_return"`
	NeedsRecovery  bool       `json:"needs_recovery"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DeviceDetailResponse provides full device info with derived values.
type DeviceDetailResponse struct {
	DeviceSummary
	IssueDescription string                `json:"issue_description"`
	Overdue          *OverdueResponse      `json:"overdue"`
	Durations        *DurationsResponse    `json:"durations"`
	NextStatuses     []domain.DeviceStatus `json:"next_statuses"`
	Corrupted        bool                  `json:"corrupted"`
	History          []TransitionResponse  `json:"history"`
	AsOf             time.Time             `json:"as_of"`
}

// OverdueResponse describes overdue classification.
type OverdueResponse struct {
	Kind            domain.OverdueKind `json:"kind"`
	DurationSeconds int64              `json:"duration_seconds"`
	Display         string             `json:"display"`
}

// DurationsResponse reports phase durations.
type DurationsResponse struct {
	TechnicianSeconds int64  `json:"technician_seconds"`
	Technician        string `json:"technician"`
	HandoverSeconds   int64  `json:"handover_seconds"`
	Handover          string `json:"handover"`
}

// TransitionResponse represents one log record.
type TransitionResponse struct {
	ID         string              `json:"id"`
	FromStatus domain.DeviceStatus `json:"from_status"`
	ToStatus   domain.DeviceStatus `json:"to_status"`
	ActorID    *string             `json:"actor_id"`
	Note       string              `json:"note,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// DashboardResponse summarizes open devices.
type DashboardResponse struct {
	Active    int `json:"active"`
	Overdue   int `json:"overdue"`
	DueToday  int `json:"due_today"`
	Corrupted int `json:"corrupted"`
}

// RecoveryResponse reports a recovery attempt.
type RecoveryResponse struct {
	DeviceID string              `json:"device_id"`
	Outcome  string              `json:"outcome"`
	Previous string              `json:"previous"`
	Status   domain.DeviceStatus `json:"status,omitempty"`
}
