package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"transport-billing/internal/core/domain"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	MobileNumber string          `gorm:"uniqueIndex;size:20;not null" json:"mobile_number"`
	Password     string          `gorm:"size:255;not null" json:"-"`
	Role         string          `gorm:"size:20;not null;default:'staff'" json:"role"`
	Salary       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"salary"`
	License      string          `gorm:"size:50" json:"license"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	MobileNumber string          `json:"mobile_number"`
	Role         string          `json:"role"`
	Salary       decimal.Decimal `json:"salary"`
	License      string          `json:"license,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		MobileNumber: u.MobileNumber,
		Role:         u.Role,
		Salary:       u.Salary,
		License:      u.License,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

// ToDomain converts the row into a domain user. An unknown stored role
// is returned as an error rather than mapped to a default.
func (u *User) ToDomain() (*domain.User, error) {
	role, err := domain.ParseRole(u.Role)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           u.ID,
		Name:         u.Name,
		MobileNumber: u.MobileNumber,
		Password:     u.Password,
		Role:         role,
		Salary:       u.Salary,
		License:      u.License,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// ============================================================
// Billing Tables
// ============================================================

// Bill represents bills table
type Bill struct {
	ID         uint      `gorm:"primaryKey"`
	BillNumber string    `gorm:"size:32;uniqueIndex;not null"`
	BillDate   time.Time `gorm:"not null"`

	CustomerName  string `gorm:"size:150;not null;index"`
	CustomerPhone string `gorm:"size:20"`
	GSTNumber     string `gorm:"column:gst_number;size:20;not null;default:'N/A'"`

	VehicleNumber    string          `gorm:"size:20;not null"`
	PackageCategory  string          `gorm:"size:100;not null"`
	NumberOfPackages int             `gorm:"not null"`
	RatePerPackage   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FromLocation     string          `gorm:"size:150;not null"`
	ToLocation       string          `gorm:"size:150;not null"`

	SubTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	GSTRate     decimal.Decimal `gorm:"column:gst_rate;type:decimal(5,4);not null"`
	GSTAmount   decimal.Decimal `gorm:"column:gst_amount;type:decimal(18,2);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	CreatedBy uint   `gorm:"not null;index"`
	StaffName string `gorm:"size:100;not null"`

	ExportCount    int `gorm:"not null;default:0"`
	LastExportedAt *time.Time

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Bill) TableName() string {
	return "bills"
}

// ToDomain converts the row into a domain bill
func (b *Bill) ToDomain() domain.Bill {
	return domain.Bill{
		ID:               b.ID,
		BillNumber:       b.BillNumber,
		BillDate:         b.BillDate,
		CustomerName:     b.CustomerName,
		CustomerPhone:    b.CustomerPhone,
		GSTNumber:        b.GSTNumber,
		VehicleNumber:    b.VehicleNumber,
		PackageCategory:  b.PackageCategory,
		NumberOfPackages: b.NumberOfPackages,
		RatePerPackage:   b.RatePerPackage,
		FromLocation:     b.FromLocation,
		ToLocation:       b.ToLocation,
		SubTotal:         b.SubTotal,
		GSTRate:          b.GSTRate,
		GSTAmount:        b.GSTAmount,
		TotalAmount:      b.TotalAmount,
		CreatedBy:        b.CreatedBy,
		StaffName:        b.StaffName,
		ExportCount:      b.ExportCount,
		LastExportedAt:   b.LastExportedAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// BillFromDomain converts a domain bill into a row
func BillFromDomain(b domain.Bill) *Bill {
	return &Bill{
		ID:               b.ID,
		BillNumber:       b.BillNumber,
		BillDate:         b.BillDate,
		CustomerName:     b.CustomerName,
		CustomerPhone:    b.CustomerPhone,
		GSTNumber:        b.GSTNumber,
		VehicleNumber:    b.VehicleNumber,
		PackageCategory:  b.PackageCategory,
		NumberOfPackages: b.NumberOfPackages,
		RatePerPackage:   b.RatePerPackage,
		FromLocation:     b.FromLocation,
		ToLocation:       b.ToLocation,
		SubTotal:         b.SubTotal,
		GSTRate:          b.GSTRate,
		GSTAmount:        b.GSTAmount,
		TotalAmount:      b.TotalAmount,
		CreatedBy:        b.CreatedBy,
		StaffName:        b.StaffName,
		ExportCount:      b.ExportCount,
		LastExportedAt:   b.LastExportedAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// BillSequence is a named counter reserved under a row lock
type BillSequence struct {
	Name       string `gorm:"primaryKey;size:50"`
	NextNumber int64  `gorm:"not null"`
	UpdatedAt  time.Time
}

func (BillSequence) TableName() string {
	return "bill_sequences"
}

// BillEvent represents the bill_events audit table
type BillEvent struct {
	ID          uint      `gorm:"primaryKey"`
	BillID      uint      `gorm:"not null;index"`
	BillNumber  string    `gorm:"size:32;not null"`
	EventType   string    `gorm:"size:20;not null"`
	Description string    `gorm:"type:text"`
	PerformedBy uint      `gorm:"not null"`
	IPAddress   string    `gorm:"size:50"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (BillEvent) TableName() string {
	return "bill_events"
}

func (e *BillEvent) ToDomain() domain.BillEvent {
	return domain.BillEvent{
		ID:          e.ID,
		BillID:      e.BillID,
		BillNumber:  e.BillNumber,
		EventType:   domain.BillEventType(e.EventType),
		Description: e.Description,
		PerformedBy: e.PerformedBy,
		IPAddress:   e.IPAddress,
		CreatedAt:   e.CreatedAt,
	}
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates every table the service owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Bill{},
		&BillSequence{},
		&BillEvent{},
	)
}
