package repositories

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"transport-billing/internal/adapters/persistence/models"
)

// billRepository implements BillRepository interface
type billRepository struct {
	db *gorm.DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

// Transaction runs fn inside a database transaction
func (r *billRepository) Transaction(ctx context.Context, fn func(repo BillRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&billRepository{db: tx})
	})
}

// ReserveNumber locks the sequence row, returns its next value and advances it.
// A missing row is created starting after the bills already stored.
func (r *billRepository) ReserveNumber(ctx context.Context, sequence string) (int64, error) {
	db := r.db.WithContext(ctx)

	var seq models.BillSequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", sequence).
		First(&seq).Error
	if IsNotFound(err) {
		var count int64
		if err := db.Model(&models.Bill{}).Count(&count).Error; err != nil {
			return 0, err
		}
		seq = models.BillSequence{Name: sequence, NextNumber: count + 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	reserved := seq.NextNumber
	err = db.Model(&models.BillSequence{}).
		Where("name = ?", sequence).
		Updates(map[string]interface{}{
			"next_number": reserved + 1,
			"updated_at":  time.Now(),
		}).Error
	if err != nil {
		return 0, err
	}

	return reserved, nil
}

// EnsureSequence creates the sequence row when it does not exist yet
func (r *billRepository) EnsureSequence(ctx context.Context, sequence string, next int64) error {
	seq := models.BillSequence{Name: sequence, NextNumber: next, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seq).Error
}

// AdvanceSequence raises next_number to next; a sequence already past it is left alone
func (r *billRepository) AdvanceSequence(ctx context.Context, sequence string, next int64) error {
	return r.db.WithContext(ctx).
		Model(&models.BillSequence{}).
		Where("name = ? AND next_number < ?", sequence, next).
		Updates(map[string]interface{}{
			"next_number": next,
			"updated_at":  time.Now(),
		}).Error
}

// Create inserts a bill
func (r *billRepository) Create(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

// GetByID gets a bill by ID
func (r *billRepository) GetByID(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bill).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// List returns the matching bills, newest first
func (r *billRepository) List(ctx context.Context, filter BillFilter) ([]*models.Bill, error) {
	var bills []*models.Bill
	err := r.filtered(ctx, filter).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// Count counts all bills
func (r *billRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bill{}).Count(&count).Error
	return count, err
}

// Update writes the editable and derived columns of a bill. Export
// bookkeeping and provenance are left untouched. A bill that no longer
// exists reports gorm.ErrRecordNotFound.
func (r *billRepository) Update(ctx context.Context, bill *models.Bill) error {
	result := r.db.WithContext(ctx).
		Model(&models.Bill{ID: bill.ID}).
		Select(
			"customer_name", "customer_phone", "gst_number",
			"vehicle_number", "package_category", "number_of_packages", "rate_per_package",
			"from_location", "to_location",
			"sub_total", "gst_rate", "gst_amount", "total_amount",
			"updated_at",
		).
		Updates(bill)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkExported bumps the export counter and stamps the export time
func (r *billRepository) MarkExported(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"export_count":     gorm.Expr("export_count + ?", 1),
			"last_exported_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete permanently removes a bill
func (r *billRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Bill{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Summary totals the matching bills per creating operator
func (r *billRepository) Summary(ctx context.Context, filter BillFilter) ([]*StaffSummaryRow, error) {
	var rows []*StaffSummaryRow
	err := r.filtered(ctx, filter).
		Select("created_by, MAX(staff_name) AS staff_name, COUNT(*) AS bill_count, " +
			"SUM(sub_total) AS sub_total, SUM(gst_amount) AS gst_amount, SUM(total_amount) AS total_amount").
		Group("created_by").
		Order("created_by ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateEvent appends an audit event
func (r *billRepository) CreateEvent(ctx context.Context, event *models.BillEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns a bill's audit events, oldest first
func (r *billRepository) ListEvents(ctx context.Context, billID uint) ([]*models.BillEvent, error) {
	var events []*models.BillEvent
	err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *billRepository) filtered(ctx context.Context, filter BillFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Bill{})
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if name := strings.TrimSpace(filter.CustomerName); name != "" {
		query = query.Where("LOWER(customer_name) LIKE ? ESCAPE '!'", "%"+EscapeLike(strings.ToLower(name))+"%")
	}
	return query
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes LIKE wildcards using '!' as the escape character
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
