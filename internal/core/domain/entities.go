package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// ParseRole converts a stored or requested role string into a Role.
// Unknown values are rejected instead of silently mapping to a default.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsOperator reports whether the role may operate the billing desk (admin or staff)
func (r Role) IsOperator() bool {
	switch r {
	case RoleAdmin, RoleStaff:
		return true
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// Principal is the authenticated actor of a request. It is never persisted.
type Principal struct {
	ID   uint
	Name string
	Role Role
}

// User represents an operator account in the domain layer
type User struct {
	ID           uint
	Name         string
	MobileNumber string
	Password     string // Hashed
	Role         Role
	Salary       decimal.Decimal
	License      string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal snapshots the user as the acting principal
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Name: u.Name, Role: u.Role}
}

// DefaultGSTNumber is stored when a bill has no GST registration
const DefaultGSTNumber = "N/A"

// Bill is an invoice for one transport job.
// SubTotal, GSTAmount and TotalAmount are derived; see billing.Recalculate.
type Bill struct {
	ID         uint      `json:"id"`
	BillNumber string    `json:"bill_number"`
	BillDate   time.Time `json:"bill_date"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	GSTNumber     string `json:"gst_number"`

	VehicleNumber    string          `json:"vehicle_number"`
	PackageCategory  string          `json:"package_category"`
	NumberOfPackages int             `json:"number_of_packages"`
	RatePerPackage   decimal.Decimal `json:"rate_per_package"`
	FromLocation     string          `json:"from_location"`
	ToLocation       string          `json:"to_location"`

	SubTotal    decimal.Decimal `json:"sub_total"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	CreatedBy uint   `json:"created_by"`
	StaffName string `json:"staff_name"`

	ExportCount    int        `json:"export_count"`
	LastExportedAt *time.Time `json:"last_exported_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether the principal created the bill
func (b *Bill) IsOwnedBy(p Principal) bool {
	return b.CreatedBy != 0 && b.CreatedBy == p.ID
}

// BillEventType is the kind of change recorded in a bill's history
type BillEventType string

const (
	BillEventCreate BillEventType = "CREATE"
	BillEventUpdate BillEventType = "UPDATE"
	BillEventExport BillEventType = "EXPORT"
	BillEventDelete BillEventType = "DELETE"
)

// BillEvent is one entry of the bill audit trail
type BillEvent struct {
	ID          uint          `json:"id"`
	BillID      uint          `json:"bill_id"`
	BillNumber  string        `json:"bill_number"`
	EventType   BillEventType `json:"event_type"`
	Description string        `json:"description"`
	PerformedBy uint          `json:"performed_by"`
	IPAddress   string        `json:"ip_address"`
	CreatedAt   time.Time     `json:"created_at"`
}

// StaffSummary aggregates the bills issued by one operator
type StaffSummary struct {
	CreatedBy   uint            `json:"created_by"`
	StaffName   string          `json:"staff_name"`
	BillCount   int64           `json:"bill_count"`
	SubTotal    decimal.Decimal `json:"sub_total"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
