// Package policy decides what a principal may do with bills.
//
// Every predicate switches over the closed set of domain roles; an
// unrecognised role is always denied.
package policy

import (
	"fmt"

	"transport-billing/internal/core/domain"
)

// Action names an operation guarded by the policy
type Action string

const (
	ActionCreate Action = "create"
	ActionList   Action = "list"
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// CanCreate allows admin and staff to issue bills
func CanCreate(p domain.Principal) bool {
	return p.Role.IsOperator()
}

// CanList allows admin and staff to list bills
func CanList(p domain.Principal) bool {
	return p.Role.IsOperator()
}

// CanUpdate allows admin on any bill and staff on their own bills
func CanUpdate(p domain.Principal, bill *domain.Bill) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleStaff:
		return bill != nil && bill.IsOwnedBy(p)
	case domain.RoleCustomer:
		return false
	default:
		return false
	}
}

// CanDelete allows admin only; ownership is not enough
func CanDelete(p domain.Principal, bill *domain.Bill) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return bill != nil
	case domain.RoleStaff, domain.RoleCustomer:
		return false
	default:
		return false
	}
}

// CanExport follows the update rule
func CanExport(p domain.Principal, bill *domain.Bill) bool {
	return CanUpdate(p, bill)
}

// CanView follows the update rule
func CanView(p domain.Principal, bill *domain.Bill) bool {
	return CanUpdate(p, bill)
}

// OwnBillsOnly reports whether listings must be narrowed to the principal's bills
func OwnBillsOnly(p domain.Principal) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return false
	case domain.RoleStaff, domain.RoleCustomer:
		return true
	default:
		return true
	}
}

// Authorize evaluates action for the principal and returns a wrapped
// domain.ErrForbidden on denial. bill may be nil for create and list.
func Authorize(p domain.Principal, action Action, bill *domain.Bill) error {
	var allowed bool
	switch action {
	case ActionCreate:
		allowed = CanCreate(p)
	case ActionList:
		allowed = CanList(p)
	case ActionView:
		allowed = CanView(p, bill)
	case ActionUpdate:
		allowed = CanUpdate(p, bill)
	case ActionDelete:
		allowed = CanDelete(p, bill)
	case ActionExport:
		allowed = CanExport(p, bill)
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrForbidden, action)
	}

	if !allowed {
		if bill == nil {
			return fmt.Errorf("%w: %s may not %s bills", domain.ErrForbidden, p.Role, action)
		}
		return fmt.Errorf("%w: %s may not %s bill %s", domain.ErrForbidden, p.Role, action, bill.BillNumber)
	}
	return nil
}
