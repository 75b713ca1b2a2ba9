package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// DevicesHandler manages device lifecycle endpoints.
type DevicesHandler struct {
	service *service.LifecycleService
}

// NewDevicesHandler constructs handler.
func NewDevicesHandler(lifecycleService *service.LifecycleService) *DevicesHandler {
	return &DevicesHandler{service: lifecycleService}
}

// RegisterDevice POST /devices.
func (h *DevicesHandler) RegisterDevice(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegisterDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	device, err := h.service.RegisterDevice(c.UserContext(), actorOf(principal), service.RegisterDeviceInput{
		CustomerID:       req.CustomerID,
		Brand:            req.Brand,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		IssueDescription: req.IssueDescription,
		AssignedTo:       req.AssignedTo,
		ExpectedReturn:   req.ExpectedReturn,
		Note:             req.Note,
	})
	if err != nil {
		return lifecycleError("", err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": deviceSummary(device)})
}

// ListDevices GET /devices.
func (h *DevicesHandler) ListDevices(c *fiber.Ctx) error {
	devices, err := h.service.ListDevices(c.UserContext(), parseDeviceQuery(c))
	if err != nil {
		return lifecycleError("", err)
	}
	items := make([]dto.DeviceSummary, 0, len(devices))
	for i := range devices {
		items = append(items, deviceSummary(&devices[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetDevice GET /devices/:id.
func (h *DevicesHandler) GetDevice(c *fiber.Ctx) error {
	id := c.Params("id")
	report, err := h.service.Inspect(c.UserContext(), id)
	if err != nil {
		return lifecycleError(id, err)
	}
	return c.JSON(fiber.Map{"data": deviceDetail(report)})
}

// History GET /devices/:id/history.
func (h *DevicesHandler) History(c *fiber.Ctx) error {
	id := c.Params("id")
	transitions, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return lifecycleError(id, err)
	}
	return c.JSON(fiber.Map{"data": transitionResponses(transitions)})
}

// NextStatuses GET /devices/:id/next-statuses. Permitted narrows the legal
// targets to those the caller's role may submit.
func (h *DevicesHandler) NextStatuses(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id := c.Params("id")
	allowed, err := h.service.NextStatuses(c.UserContext(), id)
	if err != nil {
		return lifecycleError(id, err)
	}
	permitted := make([]domain.DeviceStatus, 0, len(allowed))
	for _, status := range allowed {
		if auth.CanSubmit(principal.Role, status) {
			permitted = append(permitted, status)
		}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"allowed":   allowed,
		"permitted": permitted,
	}})
}

// SubmitTransition POST /devices/:id/transitions.
func (h *DevicesHandler) SubmitTransition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.To == "" {
		return apperrors.NewValidationError("to required", map[string]any{"to": "required"})
	}
	if !auth.CanSubmit(principal.Role, req.To) {
		return apperrors.NewForbidden("role " + string(principal.Role) + " cannot move devices to " + string(req.To))
	}

	id := c.Params("id")
	device, err := h.service.SubmitTransition(c.UserContext(), id, req.To, actorOf(principal), req.Note)
	if err != nil {
		return lifecycleError(id, err)
	}
	return c.JSON(fiber.Map{"data": deviceSummary(device)})
}

// Recover POST /devices/:id/recover.
func (h *DevicesHandler) Recover(c *fiber.Ctx) error {
	id := c.Params("id")
	result, err := h.service.RecoverCorruptedStatus(c.UserContext(), id)
	if err != nil {
		return lifecycleError(id, err)
	}
	return c.JSON(fiber.Map{"data": dto.RecoveryResponse{
		DeviceID: result.DeviceID,
		Outcome:  string(result.Outcome),
		Previous: result.Previous,
		Status:   result.Status,
	}})
}

// Dashboard GET /dashboard.
func (h *DevicesHandler) Dashboard(c *fiber.Ctx) error {
	counts, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return lifecycleError("", err)
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Active:    counts.Active,
		Overdue:   counts.Overdue,
		DueToday:  counts.DueToday,
		Corrupted: counts.Corrupted,
	}})
}

func actorOf(principal *auth.Principal) service.Actor {
	return service.Actor{ID: principal.SubjectID, Role: principal.Role}
}

func parseDeviceQuery(c *fiber.Ctx) repository.DeviceFilter {
	filter := repository.DeviceFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.DeviceStatus(strings.TrimSpace(part)))
		}
	}
	if customer := c.Query("customer_id"); customer != "" {
		filter.CustomerID = &customer
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	filter.ActiveOnly = parseBool(c.Query("active"))
	filter.CorruptedOnly = parseBool(c.Query("corrupted"))

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 200 {
		pageSize = 200
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseBool(val string) bool {
	parsed, err := strconv.ParseBool(val)
	return err == nil && parsed
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func deviceSummary(device *domain.Device) dto.DeviceSummary {
	return dto.DeviceSummary{
		ID:             device.ID,
		CustomerID:     device.CustomerID,
		Brand:          device.Brand,
		Model:          device.Model,
		SerialNumber:   device.SerialNumber,
		AssignedTo:     device.AssignedTo,
		Status:         string(device.Status),
		ExpectedReturn: device.ExpectedReturn,
		NeedsRecovery:  device.NeedsRecovery,
		Version:        device.Version,
		CreatedAt:      device.CreatedAt,
		UpdatedAt:      device.UpdatedAt,
	}
}

func deviceDetail(report *service.DeviceReport) dto.DeviceDetailResponse {
	resp := dto.DeviceDetailResponse{
		DeviceSummary:    deviceSummary(report.Device),
		IssueDescription: report.Device.IssueDescription,
		NextStatuses:     report.Next,
		Corrupted:        report.Corrupted,
		History:          transitionResponses(lifecycle.History(report.Device)),
		AsOf:             report.AsOf,
	}
	if report.Overdue != nil {
		resp.Overdue = &dto.OverdueResponse{
			Kind:            report.Overdue.Kind,
			DurationSeconds: seconds(report.Overdue.Duration),
			Display:         report.Overdue.Display,
		}
	}
	if !report.Corrupted {
		resp.Durations = &dto.DurationsResponse{
			TechnicianSeconds: seconds(report.Durations.Technician),
			Technician:        lifecycle.FormatDuration(report.Durations.Technician),
			HandoverSeconds:   seconds(report.Durations.Handover),
			Handover:          lifecycle.FormatDuration(report.Durations.Handover),
		}
	}
	return resp
}

func transitionResponses(transitions []domain.DeviceTransition) []dto.TransitionResponse {
	resp := make([]dto.TransitionResponse, 0, len(transitions))
	for _, t := range transitions {
		resp = append(resp, dto.TransitionResponse{
			ID:         t.ID,
			FromStatus: t.FromStatus,
			ToStatus:   t.ToStatus,
			ActorID:    t.ActorID,
			Note:       t.Note,
			Timestamp:  t.Timestamp,
		})
	}
	return resp
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
