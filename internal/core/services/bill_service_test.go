package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/core/domain"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected *domain.ValidationError, got %v", err)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestBillService_Create(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())

	bill := f.create(t, staff, nil)

	assert.Equal(t, "TB-000001", bill.BillNumber)
	assert.True(t, bill.SubTotal.Equal(dec("100")), bill.SubTotal.String())
	assert.True(t, bill.GSTAmount.Equal(dec("18")), bill.GSTAmount.String())
	assert.True(t, bill.TotalAmount.Equal(dec("118")), bill.TotalAmount.String())
	assert.True(t, bill.GSTRate.Equal(dec("0.18")))
	assert.Equal(t, domain.DefaultGSTNumber, bill.GSTNumber)
	assert.Equal(t, staff.ID, bill.CreatedBy)
	assert.Equal(t, staff.Name, bill.StaffName)
	assert.True(t, bill.BillDate.Equal(startTime))
	assert.Zero(t, bill.ExportCount)
	assert.Nil(t, bill.LastExportedAt)

	second := f.create(t, admin, func(in *CreateBillInput) { in.GSTNumber = " 29ABCDE1234F1Z5 " })
	assert.Equal(t, "TB-000002", second.BillNumber)
	assert.Equal(t, "29ABCDE1234F1Z5", second.GSTNumber)

	events, err := f.svc.History(context.Background(), staff, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.BillEventCreate, events[0].EventType)
	assert.Equal(t, staff.ID, events[0].PerformedBy)
	assert.Equal(t, meta.IPAddress, events[0].IPAddress)

	requireCounter(t, f.registry, "bills_created_total", "2")
}

func TestBillService_Create_Rounding(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())

	bill := f.create(t, staff, func(in *CreateBillInput) {
		in.NumberOfPackages = 3
		in.RatePerPackage = dec("33.33")
	})
	assert.True(t, bill.SubTotal.Equal(dec("99.99")), bill.SubTotal.String())
	assert.True(t, bill.GSTAmount.Equal(dec("18.00")), bill.GSTAmount.String())
	assert.True(t, bill.TotalAmount.Equal(dec("117.99")), bill.TotalAmount.String())

	// 0.25 * 0.18 = 0.045 rounds half away from zero
	small := f.create(t, staff, func(in *CreateBillInput) { in.RatePerPackage = dec("0.25") })
	assert.True(t, small.GSTAmount.Equal(dec("0.05")), small.GSTAmount.String())
	assert.True(t, small.TotalAmount.Equal(dec("0.30")), small.TotalAmount.String())
}

func TestBillService_Create_Validation(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateBillInput)
		field  string
	}{
		{"zero packages", func(in *CreateBillInput) { in.NumberOfPackages = 0 }, "number_of_packages"},
		{"negative packages", func(in *CreateBillInput) { in.NumberOfPackages = -2 }, "number_of_packages"},
		{"zero rate", func(in *CreateBillInput) { in.RatePerPackage = dec("0") }, "rate_per_package"},
		{"rate below a paisa", func(in *CreateBillInput) { in.RatePerPackage = dec("10.125") }, "rate_per_package"},
		{"blank customer", func(in *CreateBillInput) { in.CustomerName = "   " }, "customer_name"},
		{"missing vehicle", func(in *CreateBillInput) { in.VehicleNumber = "" }, "vehicle_number"},
		{"missing destination", func(in *CreateBillInput) { in.ToLocation = "" }, "to_location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validBillInput()
			tt.mutate(in)

			_, err := f.svc.Create(ctx, staff, in, meta)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, fieldNames(t, err), tt.field)
		})
	}

	bills, err := f.svc.List(ctx, admin, ListBillsInput{})
	require.NoError(t, err)
	assert.Empty(t, bills)
	requireCounter(t, f.registry, "bills_created_total", "0")
}

func TestBillService_Create_Forbidden(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())

	_, err := f.svc.Create(context.Background(), customer, validBillInput(), meta)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// seedTakenNumbers inserts bills holding the given numbers and resets the
// sequence to 1 so the next issued numbers collide with them.
func seedTakenNumbers(t *testing.T, f *billFixture, numbers ...string) {
	t.Helper()
	ctx := context.Background()
	for _, n := range numbers {
		taken := models.BillFromDomain(domain.Bill{
			BillNumber:       n,
			BillDate:         startTime,
			CustomerName:     "Imported",
			GSTNumber:        domain.DefaultGSTNumber,
			VehicleNumber:    "X",
			PackageCategory:  "X",
			NumberOfPackages: 1,
			RatePerPackage:   dec("1"),
			FromLocation:     "X",
			ToLocation:       "X",
			SubTotal:         dec("1"),
			GSTRate:          dec("0.18"),
			GSTAmount:        dec("0.18"),
			TotalAmount:      dec("1.18"),
			CreatedBy:        admin.ID,
			StaffName:        admin.Name,
			CreatedAt:        startTime,
		})
		require.NoError(t, f.repo.Create(ctx, taken))
	}
	require.NoError(t, f.repo.EnsureSequence(ctx, BillSequenceName, 1))
}

func TestBillService_Create_NumberConflictSkipsTakenNumber(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	seedTakenNumbers(t, f, "TB-000001")

	bill, err := f.svc.Create(context.Background(), staff, validBillInput(), meta)
	require.NoError(t, err)
	assert.Equal(t, "TB-000002", bill.BillNumber)

	requireCounter(t, f.registry, "bill_number_conflicts_total", "1")
	requireCounter(t, f.registry, "bills_created_total", "1")
}

func TestBillService_Create_NumberConflictExhaustsRetries(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	seedTakenNumbers(t, f, "TB-000001", "TB-000002", "TB-000003")

	_, err := f.svc.Create(ctx, staff, validBillInput(), meta)
	require.ErrorIs(t, err, domain.ErrDuplicateBillNumber)

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	requireCounter(t, f.registry, "bill_number_conflicts_total", "3")
	requireCounter(t, f.registry, "bills_created_total", "0")
}

func TestBillService_Get(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, nil)

	got, err := f.svc.Get(ctx, staff, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, bill.BillNumber, got.BillNumber)

	_, err = f.svc.Get(ctx, admin, bill.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, other, bill.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// a missing bill is reported before access is checked
	_, err = f.svc.Get(ctx, other, bill.ID+99)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
	_, err = f.svc.Get(ctx, customer, bill.ID+99)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestBillService_List(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()

	first := f.create(t, staff, nil)
	second := f.create(t, other, func(in *CreateBillInput) { in.CustomerName = "Bharat Logistics" })
	third := f.create(t, staff, func(in *CreateBillInput) { in.CustomerName = "ACME Cold Chain" })

	all, err := f.svc.List(ctx, admin, ListBillsInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})

	own, err := f.svc.List(ctx, staff, ListBillsInput{})
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, b := range own {
		assert.Equal(t, staff.ID, b.CreatedBy)
	}

	acme, err := f.svc.List(ctx, admin, ListBillsInput{CustomerName: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	otherAcme, err := f.svc.List(ctx, other, ListBillsInput{CustomerName: "acme"})
	require.NoError(t, err)
	assert.Empty(t, otherAcme)

	_, err = f.svc.List(ctx, customer, ListBillsInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBillService_Update(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, func(in *CreateBillInput) { in.GSTNumber = "29ABCDE1234F1Z5" })

	name := "  Acme Traders Pvt Ltd "
	updated, err := f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{CustomerName: &name}, meta)
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders Pvt Ltd", updated.CustomerName)
	assert.Equal(t, bill.BillNumber, updated.BillNumber)
	assert.Equal(t, "29ABCDE1234F1Z5", updated.GSTNumber)
	assert.True(t, updated.TotalAmount.Equal(dec("118")))

	qty, rate := 2, dec("150.50")
	updated, err = f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{NumberOfPackages: &qty, RatePerPackage: &rate}, meta)
	require.NoError(t, err)
	assert.True(t, updated.SubTotal.Equal(dec("301")), updated.SubTotal.String())
	assert.True(t, updated.GSTAmount.Equal(dec("54.18")), updated.GSTAmount.String())
	assert.True(t, updated.TotalAmount.Equal(dec("355.18")), updated.TotalAmount.String())

	empty := ""
	updated, err = f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{GSTNumber: &empty}, meta)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGSTNumber, updated.GSTNumber)

	stored, err := f.svc.Get(ctx, admin, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders Pvt Ltd", stored.CustomerName)
	assert.Equal(t, 2, stored.NumberOfPackages)
	assert.True(t, stored.TotalAmount.Equal(dec("355.18")))
	assert.Equal(t, staff.ID, stored.CreatedBy)
	assert.Equal(t, staff.Name, stored.StaffName)

	events, err := f.svc.History(ctx, staff, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.BillEventUpdate, events[1].EventType)
	assert.Equal(t, "Updated customer_name", events[1].Description)
	assert.Equal(t, "Updated number_of_packages, rate_per_package", events[2].Description)
}

func TestBillService_Update_Rejected(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, nil)

	name := "Hijacked"
	_, err := f.svc.Update(ctx, other, bill.ID, &UpdateBillInput{CustomerName: &name}, meta)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Update(ctx, other, bill.ID+50, &UpdateBillInput{CustomerName: &name}, meta)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)

	zero := 0
	_, err = f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{NumberOfPackages: &zero}, meta)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, fieldNames(t, err), "number_of_packages")

	blank := "  "
	_, err = f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{CustomerName: &blank}, meta)
	assert.ErrorIs(t, err, domain.ErrValidation)

	fine := dec("10.125")
	_, err = f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{RatePerPackage: &fine}, meta)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, fieldNames(t, err), "rate_per_package")

	stored, err := f.svc.Get(ctx, staff, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders", stored.CustomerName)
	assert.Equal(t, 1, stored.NumberOfPackages)
	assert.True(t, stored.RatePerPackage.Equal(dec("100")), stored.RatePerPackage.String())
}

func TestBillService_Update_RateOnly(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, func(in *CreateBillInput) { in.NumberOfPackages = 4 })

	rate := dec("12.35")
	updated, err := f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{RatePerPackage: &rate}, meta)
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, staff, bill.ID)
	require.NoError(t, err)
	for _, got := range []*domain.Bill{updated, stored} {
		assert.Equal(t, bill.CustomerName, got.CustomerName)
		assert.Equal(t, bill.CustomerPhone, got.CustomerPhone)
		assert.Equal(t, bill.GSTNumber, got.GSTNumber)
		assert.Equal(t, bill.VehicleNumber, got.VehicleNumber)
		assert.Equal(t, bill.PackageCategory, got.PackageCategory)
		assert.Equal(t, bill.FromLocation, got.FromLocation)
		assert.Equal(t, bill.ToLocation, got.ToLocation)
		assert.Equal(t, 4, got.NumberOfPackages)
		assert.True(t, got.RatePerPackage.Equal(dec("12.35")), got.RatePerPackage.String())
		// 4 * 12.35 = 49.40, GST 8.892 rounds to 8.89
		assert.True(t, got.SubTotal.Equal(dec("49.40")), got.SubTotal.String())
		assert.True(t, got.GSTAmount.Equal(dec("8.89")), got.GSTAmount.String())
		assert.True(t, got.TotalAmount.Equal(dec("58.29")), got.TotalAmount.String())
	}

	events, err := f.svc.History(ctx, staff, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Updated rate_per_package", events[1].Description)
}

// vanishingBillRepository deletes a bill just before the write transaction
// opens, as a concurrent delete would.
type vanishingBillRepository struct {
	repositories.BillRepository
	id uint
}

func (r vanishingBillRepository) Transaction(ctx context.Context, fn func(tx repositories.BillRepository) error) error {
	if err := r.BillRepository.Delete(ctx, r.id); err != nil {
		return err
	}
	return r.BillRepository.Transaction(ctx, fn)
}

func TestBillService_Update_DeletedConcurrently(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, nil)
	f.svc.billRepo = vanishingBillRepository{BillRepository: f.repo, id: bill.ID}

	name := "Too Late"
	updated, err := f.svc.Update(ctx, staff, bill.ID, &UpdateBillInput{CustomerName: &name}, meta)
	require.ErrorIs(t, err, domain.ErrBillNotFound)
	assert.Nil(t, updated)

	events, err := f.repo.ListEvents(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(domain.BillEventCreate), events[0].EventType)
}

func TestBillService_Delete(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, nil)

	// owning the bill is not enough
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, bill.ID, meta), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, other, bill.ID, meta), domain.ErrForbidden)

	// a missing bill is reported before access is checked
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, bill.ID+99, meta), domain.ErrBillNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, customer, bill.ID+99, meta), domain.ErrBillNotFound)

	require.NoError(t, f.svc.Delete(ctx, admin, bill.ID, meta))

	_, err := f.svc.Get(ctx, admin, bill.ID)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, bill.ID, meta), domain.ErrBillNotFound)

	events, err := f.repo.ListEvents(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(domain.BillEventDelete), events[1].EventType)
	assert.Equal(t, admin.ID, events[1].PerformedBy)

	// numbers are not reused after a delete
	next := f.create(t, staff, nil)
	assert.Equal(t, "TB-000002", next.BillNumber)
}

func TestBillService_Export(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	bill := f.create(t, staff, nil)
	exportedAt := f.clock.Now()

	result, err := f.svc.Export(ctx, staff, bill.ID, meta)
	require.NoError(t, err)
	assert.Equal(t, "Invoice-TB-000001.pdf", result.Filename)
	assert.Equal(t, PDFContentType, result.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 stub"), result.Content)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Export(ctx, admin, bill.ID, meta)
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, staff, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ExportCount)
	require.NotNil(t, stored.LastExportedAt)
	assert.True(t, stored.LastExportedAt.Equal(exportedAt.Add(time.Hour)))

	events, err := f.svc.History(ctx, staff, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.BillEventExport, events[2].EventType)

	_, err = f.svc.Export(ctx, other, bill.ID, meta)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// a missing bill is reported before access is checked
	_, err = f.svc.Export(ctx, other, bill.ID+99, meta)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)
	_, err = f.svc.Export(ctx, customer, bill.ID+99, meta)
	assert.ErrorIs(t, err, domain.ErrBillNotFound)

	requireCounter(t, f.registry, "bills_exported_total", "2")
}

func TestBillService_Export_RendererFailure(t *testing.T) {
	f := newBillFixture(t, stubRenderer{err: errors.New("font missing")})
	ctx := context.Background()
	bill := f.create(t, staff, nil)

	result, err := f.svc.Export(ctx, staff, bill.ID, meta)
	require.ErrorIs(t, err, domain.ErrExportFailed)
	assert.Nil(t, result)

	var exportErr *domain.ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, bill.BillNumber, exportErr.BillNumber)

	stored, err := f.svc.Get(ctx, staff, bill.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ExportCount)
	assert.Nil(t, stored.LastExportedAt)

	events, err := f.svc.History(ctx, staff, bill.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	requireCounter(t, f.registry, "export_failures_total", "1")
	requireCounter(t, f.registry, "bills_exported_total", "0")
}

func TestBillService_Export_EmptyDocument(t *testing.T) {
	f := newBillFixture(t, stubRenderer{})
	bill := f.create(t, staff, nil)

	_, err := f.svc.Export(context.Background(), staff, bill.ID, meta)
	assert.ErrorIs(t, err, domain.ErrExportFailed)
}

func TestBillService_Summary(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()

	f.create(t, staff, nil)
	f.create(t, staff, func(in *CreateBillInput) {
		in.NumberOfPackages = 3
		in.RatePerPackage = dec("33.33")
	})
	f.create(t, other, func(in *CreateBillInput) { in.RatePerPackage = dec("50") })

	rows, err := f.svc.Summary(ctx, admin, ListBillsInput{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, staff.ID, rows[0].CreatedBy)
	assert.Equal(t, staff.Name, rows[0].StaffName)
	assert.Equal(t, int64(2), rows[0].BillCount)
	assert.True(t, rows[0].SubTotal.Equal(dec("199.99")), rows[0].SubTotal.String())
	assert.True(t, rows[0].GSTAmount.Equal(dec("36")), rows[0].GSTAmount.String())
	assert.True(t, rows[0].TotalAmount.Equal(dec("235.99")), rows[0].TotalAmount.String())

	assert.Equal(t, other.ID, rows[1].CreatedBy)
	assert.True(t, rows[1].TotalAmount.Equal(dec("59")), rows[1].TotalAmount.String())

	own, err := f.svc.Summary(ctx, other, ListBillsInput{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, other.ID, own[0].CreatedBy)
}

func TestBillService_Register(t *testing.T) {
	f := newBillFixture(t, pdfRenderer())
	ctx := context.Background()
	f.create(t, staff, nil)

	content, err := f.svc.Register(ctx, staff, ListBillsInput{})
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), content[:2])

	_, err = f.svc.Register(ctx, customer, ListBillsInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
