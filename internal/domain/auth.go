package domain

import "time"

// Role enumerates shop staff roles carried in access tokens.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleTechnician   Role = "technician"
	RoleCustomerCare Role = "customer-care"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleCustomerCare:
		return true
	default:
		return false
	}
}

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}
