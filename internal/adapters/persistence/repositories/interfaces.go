package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"transport-billing/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByMobileNumber(ctx context.Context, mobile string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, search string, offset, limit int) ([]*models.User, int64, error)
	ExistsByMobileNumber(ctx context.Context, mobile string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint, at time.Time) error
	RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// BillFilter narrows bill listings. A nil CreatedBy lists every operator's bills.
type BillFilter struct {
	CreatedBy    *uint
	CustomerName string
}

// StaffSummaryRow is one group of the per-operator bill summary
type StaffSummaryRow struct {
	CreatedBy   uint
	StaffName   string
	BillCount   int64
	SubTotal    decimal.Decimal
	GSTAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// BillRepository defines bill repository interface
type BillRepository interface {
	// Transaction runs fn against a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(repo BillRepository) error) error
	// ReserveNumber returns the next value of the named sequence and advances
	// it. The row stays locked until the surrounding transaction ends.
	ReserveNumber(ctx context.Context, sequence string) (int64, error)
	EnsureSequence(ctx context.Context, sequence string, next int64) error
	// AdvanceSequence moves the named sequence forward to at least next
	AdvanceSequence(ctx context.Context, sequence string, next int64) error

	Create(ctx context.Context, bill *models.Bill) error
	GetByID(ctx context.Context, id uint) (*models.Bill, error)
	List(ctx context.Context, filter BillFilter) ([]*models.Bill, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, bill *models.Bill) error
	MarkExported(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
	Summary(ctx context.Context, filter BillFilter) ([]*StaffSummaryRow, error)

	CreateEvent(ctx context.Context, event *models.BillEvent) error
	ListEvents(ctx context.Context, billID uint) ([]*models.BillEvent, error)
}
