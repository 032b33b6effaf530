package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/billing"
	"transport-billing/internal/core/domain"
	"transport-billing/internal/core/policy"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/metrics"
	"transport-billing/internal/pkg/register"
	"transport-billing/internal/pkg/validation"
)

// BillService runs the bill lifecycle: create, read, update, delete and export
type BillService struct {
	billRepo  repositories.BillRepository
	numbering *NumberingService
	exporter  *ExportService
	validator *validation.Validator
	cfg       config.BillingConfig
	clock     clock.Clock
	metrics   *metrics.BillingMetrics
	log       *zap.Logger
}

// NewBillService creates a new bill service
func NewBillService(
	billRepo repositories.BillRepository,
	numbering *NumberingService,
	exporter *ExportService,
	validator *validation.Validator,
	cfg config.BillingConfig,
	clk clock.Clock,
	m *metrics.BillingMetrics,
	log *zap.Logger,
) *BillService {
	if cfg.DefaultGSTNumber == "" {
		cfg.DefaultGSTNumber = domain.DefaultGSTNumber
	}
	if cfg.MaxNumberRetries < 1 {
		cfg.MaxNumberRetries = 1
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &BillService{
		billRepo:  billRepo,
		numbering: numbering,
		exporter:  exporter,
		validator: validator,
		cfg:       cfg,
		clock:     clk,
		metrics:   m,
		log:       logger.OrNop(log),
	}
}

// CreateBillInput represents create bill input
type CreateBillInput struct {
	CustomerName     string          `json:"customer_name" validate:"required,max=150"`
	CustomerPhone    string          `json:"customer_phone" validate:"omitempty,max=20"`
	GSTNumber        string          `json:"gst_number" validate:"omitempty,max=20"`
	VehicleNumber    string          `json:"vehicle_number" validate:"required,max=20"`
	PackageCategory  string          `json:"package_category" validate:"required,max=100"`
	NumberOfPackages int             `json:"number_of_packages" validate:"min=1"`
	RatePerPackage   decimal.Decimal `json:"rate_per_package" validate:"min=0.01,currency"`
	FromLocation     string          `json:"from_location" validate:"required,max=150"`
	ToLocation       string          `json:"to_location" validate:"required,max=150"`
}

func (in *CreateBillInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.GSTNumber = strings.TrimSpace(in.GSTNumber)
	in.VehicleNumber = strings.TrimSpace(in.VehicleNumber)
	in.PackageCategory = strings.TrimSpace(in.PackageCategory)
	in.FromLocation = strings.TrimSpace(in.FromLocation)
	in.ToLocation = strings.TrimSpace(in.ToLocation)
}

// UpdateBillInput represents update bill input. Nil fields are kept;
// present fields replace the stored value.
type UpdateBillInput struct {
	CustomerName     *string          `json:"customer_name" validate:"omitnil,min=1,max=150"`
	CustomerPhone    *string          `json:"customer_phone" validate:"omitnil,max=20"`
	GSTNumber        *string          `json:"gst_number" validate:"omitnil,max=20"`
	VehicleNumber    *string          `json:"vehicle_number" validate:"omitnil,min=1,max=20"`
	PackageCategory  *string          `json:"package_category" validate:"omitnil,min=1,max=100"`
	NumberOfPackages *int             `json:"number_of_packages" validate:"omitnil,min=1"`
	RatePerPackage   *decimal.Decimal `json:"rate_per_package" validate:"omitnil,min=0.01,currency"`
	FromLocation     *string          `json:"from_location" validate:"omitnil,min=1,max=150"`
	ToLocation       *string          `json:"to_location" validate:"omitnil,min=1,max=150"`
}

func (in *UpdateBillInput) normalize() {
	for _, s := range []*string{
		in.CustomerName, in.CustomerPhone, in.GSTNumber, in.VehicleNumber,
		in.PackageCategory, in.FromLocation, in.ToLocation,
	} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

// ListBillsInput represents list bills input
type ListBillsInput struct {
	CustomerName string
}

// Create validates input, numbers and prices the bill, and stores it
// together with its CREATE event.
func (s *BillService) Create(ctx context.Context, p domain.Principal, input *CreateBillInput, meta RequestMeta) (*domain.Bill, error) {
	if err := policy.Authorize(p, policy.ActionCreate, nil); err != nil {
		return nil, err
	}

	input.normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	draft := billing.Recalculate(domain.Bill{
		BillDate:         now,
		CustomerName:     input.CustomerName,
		CustomerPhone:    input.CustomerPhone,
		GSTNumber:        s.gstNumberOrDefault(input.GSTNumber),
		VehicleNumber:    input.VehicleNumber,
		PackageCategory:  input.PackageCategory,
		NumberOfPackages: input.NumberOfPackages,
		RatePerPackage:   input.RatePerPackage,
		FromLocation:     input.FromLocation,
		ToLocation:       input.ToLocation,
		GSTRate:          s.cfg.GSTRate,
		CreatedBy:        p.ID,
		StaffName:        p.Name,
		CreatedAt:        now,
		UpdatedAt:        now,
	})

	var (
		created *domain.Bill
		number  string
		err     error
	)
	for attempt := 1; ; attempt++ {
		created, number, err = s.createOnce(ctx, draft, p, meta)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateBillNumber) {
			return nil, err
		}
		s.metrics.NumberConflict()
		s.log.Warn("bill number conflict",
			zap.String("bill_number", number),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxNumberRetries),
			zap.Error(err),
		)
		if attempt >= s.cfg.MaxNumberRetries {
			return nil, err
		}
		if number != "" {
			if err := s.numbering.SkipPast(ctx, s.billRepo, number); err != nil {
				return nil, err
			}
		}
	}

	s.metrics.BillCreated()
	s.log.Info("bill created",
		zap.String("bill_number", created.BillNumber),
		zap.Uint("created_by", p.ID),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)),
	)
	return created, nil
}

// createOnce numbers and inserts draft in one transaction. The issued
// number is returned even on failure so a conflict can be skipped.
func (s *BillService) createOnce(ctx context.Context, draft domain.Bill, p domain.Principal, meta RequestMeta) (*domain.Bill, string, error) {
	var (
		created domain.Bill
		number  string
	)
	err := s.billRepo.Transaction(ctx, func(tx repositories.BillRepository) error {
		var err error
		number, err = s.numbering.IssueNext(ctx, tx)
		if err != nil {
			return err
		}

		row := models.BillFromDomain(draft)
		row.BillNumber = number
		if err := tx.Create(ctx, row); err != nil {
			if repositories.IsDuplicateKey(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateBillNumber, number)
			}
			return storageError("create bill", err)
		}

		created = row.ToDomain()
		desc := fmt.Sprintf("Bill %s created for %s, total %s", number, row.CustomerName, row.TotalAmount.StringFixed(2))
		return s.recordEvent(ctx, tx, &created, domain.BillEventCreate, desc, p, meta)
	})
	if err != nil {
		return nil, number, storageError("create bill", err)
	}
	return &created, number, nil
}

// Get returns one bill. A missing bill is reported before access is checked.
func (s *BillService) Get(ctx context.Context, p domain.Principal, id uint) (*domain.Bill, error) {
	bill, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p, policy.ActionView, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// List returns the bills visible to p, newest first. Staff only see
// their own bills; the customer filter is a case-insensitive substring.
func (s *BillService) List(ctx context.Context, p domain.Principal, input ListBillsInput) ([]domain.Bill, error) {
	if err := policy.Authorize(p, policy.ActionList, nil); err != nil {
		return nil, err
	}

	rows, err := s.billRepo.List(ctx, s.visibleTo(p, input))
	if err != nil {
		return nil, storageError("list bills", err)
	}

	bills := make([]domain.Bill, 0, len(rows))
	for _, row := range rows {
		bills = append(bills, row.ToDomain())
	}
	return bills, nil
}

// Update merges the supplied fields into the stored bill. Amounts are
// recalculated only when the package count or rate changed.
func (s *BillService) Update(ctx context.Context, p domain.Principal, id uint, input *UpdateBillInput, meta RequestMeta) (*domain.Bill, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p, policy.ActionUpdate, current); err != nil {
		return nil, err
	}

	input.normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	next := s.merge(*current, input)
	changed := changedFields(*current, next)
	if billing.NeedsRecalculation(current, next) {
		next = billing.Recalculate(next)
	}
	next.UpdatedAt = s.clock.Now()

	err = s.billRepo.Transaction(ctx, func(tx repositories.BillRepository) error {
		if err := tx.Update(ctx, models.BillFromDomain(next)); err != nil {
			if repositories.IsNotFound(err) {
				return fmt.Errorf("%w: id %d", domain.ErrBillNotFound, id)
			}
			return storageError("update bill", err)
		}
		desc := "No changes"
		if len(changed) > 0 {
			desc = "Updated " + strings.Join(changed, ", ")
		}
		return s.recordEvent(ctx, tx, &next, domain.BillEventUpdate, desc, p, meta)
	})
	if err != nil {
		return nil, storageError("update bill", err)
	}

	s.log.Info("bill updated",
		zap.String("bill_number", next.BillNumber),
		zap.Uint("updated_by", p.ID),
		zap.Strings("fields", changed),
	)
	return &next, nil
}

// Delete permanently removes a bill. Only admins may delete.
func (s *BillService) Delete(ctx context.Context, p domain.Principal, id uint, meta RequestMeta) error {
	bill, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(p, policy.ActionDelete, bill); err != nil {
		return err
	}

	err = s.billRepo.Transaction(ctx, func(tx repositories.BillRepository) error {
		if err := tx.Delete(ctx, bill.ID); err != nil {
			if repositories.IsNotFound(err) {
				return fmt.Errorf("%w: id %d", domain.ErrBillNotFound, id)
			}
			return storageError("delete bill", err)
		}
		desc := fmt.Sprintf("Bill %s deleted", bill.BillNumber)
		return s.recordEvent(ctx, tx, bill, domain.BillEventDelete, desc, p, meta)
	})
	if err != nil {
		return storageError("delete bill", err)
	}

	s.log.Info("bill deleted", zap.String("bill_number", bill.BillNumber), zap.Uint("deleted_by", p.ID))
	return nil
}

// Export renders the bill as a PDF and records the export
func (s *BillService) Export(ctx context.Context, p domain.Principal, id uint, meta RequestMeta) (*ExportResult, error) {
	bill, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p, policy.ActionExport, bill); err != nil {
		return nil, err
	}

	result, err := s.exporter.BuildExport(ctx, *bill)
	if err != nil {
		s.metrics.ExportFailed()
		s.log.Error("bill export failed", zap.String("bill_number", bill.BillNumber), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	err = s.billRepo.Transaction(ctx, func(tx repositories.BillRepository) error {
		if err := tx.MarkExported(ctx, bill.ID, now); err != nil {
			if repositories.IsNotFound(err) {
				return fmt.Errorf("%w: id %d", domain.ErrBillNotFound, id)
			}
			return storageError("mark bill exported", err)
		}
		desc := fmt.Sprintf("Exported as %s", result.Filename)
		return s.recordEvent(ctx, tx, bill, domain.BillEventExport, desc, p, meta)
	})
	if err != nil {
		return nil, storageError("export bill", err)
	}

	s.metrics.BillExported()
	s.log.Info("bill exported", zap.String("bill_number", bill.BillNumber), zap.Int("bytes", len(result.Content)))
	return result, nil
}

// History returns the audit trail of a bill, oldest first
func (s *BillService) History(ctx context.Context, p domain.Principal, id uint) ([]domain.BillEvent, error) {
	bill, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(p, policy.ActionView, bill); err != nil {
		return nil, err
	}

	rows, err := s.billRepo.ListEvents(ctx, bill.ID)
	if err != nil {
		return nil, storageError("list bill events", err)
	}

	events := make([]domain.BillEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.ToDomain())
	}
	return events, nil
}

// Summary totals the visible bills per operator
func (s *BillService) Summary(ctx context.Context, p domain.Principal, input ListBillsInput) ([]domain.StaffSummary, error) {
	if err := policy.Authorize(p, policy.ActionList, nil); err != nil {
		return nil, err
	}

	rows, err := s.billRepo.Summary(ctx, s.visibleTo(p, input))
	if err != nil {
		return nil, storageError("summarize bills", err)
	}

	out := make([]domain.StaffSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StaffSummary{
			CreatedBy:   row.CreatedBy,
			StaffName:   row.StaffName,
			BillCount:   row.BillCount,
			SubTotal:    row.SubTotal.Round(billing.CurrencyPlaces),
			GSTAmount:   row.GSTAmount.Round(billing.CurrencyPlaces),
			TotalAmount: row.TotalAmount.Round(billing.CurrencyPlaces),
		})
	}
	return out, nil
}

// Register renders the visible bills as an xlsx workbook
func (s *BillService) Register(ctx context.Context, p domain.Principal, input ListBillsInput) ([]byte, error) {
	bills, err := s.List(ctx, p, input)
	if err != nil {
		return nil, err
	}

	content, err := register.Write(bills)
	if err != nil {
		return nil, fmt.Errorf("write bill register: %w", err)
	}
	return content, nil
}

// load fetches a bill, mapping a missing row to domain.ErrBillNotFound
func (s *BillService) load(ctx context.Context, id uint) (*domain.Bill, error) {
	row, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrBillNotFound, id)
		}
		return nil, storageError("get bill", err)
	}
	bill := row.ToDomain()
	return &bill, nil
}

func (s *BillService) visibleTo(p domain.Principal, input ListBillsInput) repositories.BillFilter {
	filter := repositories.BillFilter{CustomerName: strings.TrimSpace(input.CustomerName)}
	if policy.OwnBillsOnly(p) {
		id := p.ID
		filter.CreatedBy = &id
	}
	return filter
}

func (s *BillService) merge(b domain.Bill, in *UpdateBillInput) domain.Bill {
	if in.CustomerName != nil {
		b.CustomerName = *in.CustomerName
	}
	if in.CustomerPhone != nil {
		b.CustomerPhone = *in.CustomerPhone
	}
	if in.GSTNumber != nil {
		b.GSTNumber = s.gstNumberOrDefault(*in.GSTNumber)
	}
	if in.VehicleNumber != nil {
		b.VehicleNumber = *in.VehicleNumber
	}
	if in.PackageCategory != nil {
		b.PackageCategory = *in.PackageCategory
	}
	if in.NumberOfPackages != nil {
		b.NumberOfPackages = *in.NumberOfPackages
	}
	if in.RatePerPackage != nil {
		b.RatePerPackage = *in.RatePerPackage
	}
	if in.FromLocation != nil {
		b.FromLocation = *in.FromLocation
	}
	if in.ToLocation != nil {
		b.ToLocation = *in.ToLocation
	}
	return b
}

func (s *BillService) gstNumberOrDefault(v string) string {
	if v == "" {
		return s.cfg.DefaultGSTNumber
	}
	return v
}

func (s *BillService) recordEvent(ctx context.Context, tx repositories.BillRepository, bill *domain.Bill, kind domain.BillEventType, desc string, p domain.Principal, meta RequestMeta) error {
	event := &models.BillEvent{
		BillID:      bill.ID,
		BillNumber:  bill.BillNumber,
		EventType:   string(kind),
		Description: desc,
		PerformedBy: p.ID,
		IPAddress:   meta.IPAddress,
		CreatedAt:   s.clock.Now(),
	}
	if err := tx.CreateEvent(ctx, event); err != nil {
		return storageError("record bill event", err)
	}
	return nil
}

// changedFields lists the json names of the inputs that differ between a and b
func changedFields(a, b domain.Bill) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	add("customer_name", a.CustomerName != b.CustomerName)
	add("customer_phone", a.CustomerPhone != b.CustomerPhone)
	add("gst_number", a.GSTNumber != b.GSTNumber)
	add("vehicle_number", a.VehicleNumber != b.VehicleNumber)
	add("package_category", a.PackageCategory != b.PackageCategory)
	add("number_of_packages", a.NumberOfPackages != b.NumberOfPackages)
	add("rate_per_package", !a.RatePerPackage.Equal(b.RatePerPackage))
	add("from_location", a.FromLocation != b.FromLocation)
	add("to_location", a.ToLocation != b.ToLocation)
	return changed
}
