package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// RequireRole ensures the principal has one of the allowed roles. With no
// roles given any authenticated principal passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// CanSubmit reports whether role may move a device into status. Handoff and
// closing belong to customer care; everything up to repair completion, and
// writing a device off, belongs to the workshop. Admins may do either.
func CanSubmit(role domain.Role, to domain.DeviceStatus) bool {
	if role == domain.RoleAdmin {
		return true
	}
	switch to {
	case domain.DeviceStatusReturnedToCustomerCare, domain.DeviceStatusDone:
		return role == domain.RoleCustomerCare
	default:
		return role == domain.RoleTechnician
	}
}
