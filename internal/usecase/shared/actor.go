package shared

import (
	"errors"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("actor lacks the required capability")

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller, passed explicitly into every public
// operation instead of being read from handler decorators.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Capability string

const (
	CapCheckout     Capability = "checkout"
	CapCancelOwn    Capability = "cancel_own_order"
	CapUpdateStatus Capability = "update_order_status"
	CapManageStock  Capability = "manage_stock"
	CapViewAnyOrder Capability = "view_any_order"
	CapReconcile    Capability = "reconcile"
)

var grants = map[Role]map[Capability]bool{
	RoleCustomer: {
		CapCheckout:  true,
		CapCancelOwn: true,
	},
	RoleVendor: {
		CapUpdateStatus: true,
		CapManageStock:  true,
	},
	RoleAdmin: {
		CapCheckout:     true,
		CapCancelOwn:    true,
		CapUpdateStatus: true,
		CapManageStock:  true,
		CapViewAnyOrder: true,
		CapReconcile:    true,
	},
}

// Authorize is the explicit guard invoked at the start of each public
// operation.
func Authorize(actor Actor, cap Capability) error {
	if grants[actor.Role][cap] {
		return nil
	}
	return ErrForbidden
}
