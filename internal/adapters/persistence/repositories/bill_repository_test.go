package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/pkg/testdb"
)

var baseTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func newBillRow(n int, customer string, createdBy uint) *models.Bill {
	return &models.Bill{
		BillNumber:       fmt.Sprintf("TB-%06d", n),
		BillDate:         baseTime,
		CustomerName:     customer,
		GSTNumber:        "N/A",
		VehicleNumber:    "KA-01-1234",
		PackageCategory:  "Cartons",
		NumberOfPackages: 1,
		RatePerPackage:   decimal.NewFromInt(100),
		FromLocation:     "A",
		ToLocation:       "B",
		SubTotal:         decimal.NewFromInt(100),
		GSTRate:          decimal.RequireFromString("0.18"),
		GSTAmount:        decimal.NewFromInt(18),
		TotalAmount:      decimal.NewFromInt(118),
		CreatedBy:        createdBy,
		StaffName:        fmt.Sprintf("staff-%d", createdBy),
		CreatedAt:        baseTime.Add(time.Duration(n) * time.Minute),
	}
}

func TestBillRepository_CreateAndGet(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	bill := newBillRow(1, "Acme Traders", 2)
	require.NoError(t, repo.Create(ctx, bill))
	require.NotZero(t, bill.ID)

	got, err := repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "TB-000001", got.BillNumber)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(118)))
	assert.True(t, got.GSTRate.Equal(decimal.RequireFromString("0.18")))

	_, err = repo.GetByID(ctx, bill.ID+100)
	assert.True(t, IsNotFound(err))
}

func TestBillRepository_UniqueBillNumber(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBillRow(1, "Acme", 2)))
	err := repo.Create(ctx, newBillRow(1, "Other", 3))
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err), err.Error())
}

func TestBillRepository_ReserveNumber(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBillRow(1, "Acme", 2)))
	require.NoError(t, repo.Create(ctx, newBillRow(2, "Acme", 2)))

	// first reservation starts after the stored bills
	var got []int64
	for i := 0; i < 3; i++ {
		err := repo.Transaction(ctx, func(tx BillRepository) error {
			n, err := tx.ReserveNumber(ctx, "bill")
			got = append(got, n)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{3, 4, 5}, got)
}

func TestBillRepository_ReserveNumberRollsBack(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()
	require.NoError(t, repo.EnsureSequence(ctx, "bill", 1))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx BillRepository) error {
		n, err := tx.ReserveNumber(ctx, "bill")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = repo.Transaction(ctx, func(tx BillRepository) error {
		n, err := tx.ReserveNumber(ctx, "bill")
		assert.Equal(t, int64(1), n, "rolled back reservation is reissued")
		return err
	})
	require.NoError(t, err)
}

func TestBillRepository_EnsureSequenceKeepsExisting(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	require.NoError(t, repo.EnsureSequence(ctx, "bill", 10))
	require.NoError(t, repo.EnsureSequence(ctx, "bill", 1))

	var n int64
	require.NoError(t, repo.Transaction(ctx, func(tx BillRepository) error {
		var err error
		n, err = tx.ReserveNumber(ctx, "bill")
		return err
	}))
	assert.Equal(t, int64(10), n)
}

func TestBillRepository_AdvanceSequence(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()
	require.NoError(t, repo.EnsureSequence(ctx, "bill", 1))

	require.NoError(t, repo.AdvanceSequence(ctx, "bill", 7))
	// never moves backwards
	require.NoError(t, repo.AdvanceSequence(ctx, "bill", 3))

	var n int64
	require.NoError(t, repo.Transaction(ctx, func(tx BillRepository) error {
		var err error
		n, err = tx.ReserveNumber(ctx, "bill")
		return err
	}))
	assert.Equal(t, int64(7), n)
}

func TestBillRepository_ListFilters(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBillRow(1, "Acme Traders", 2)))
	require.NoError(t, repo.Create(ctx, newBillRow(2, "Bharat 100% Goods", 3)))
	require.NoError(t, repo.Create(ctx, newBillRow(3, "ACME Logistics", 3)))
	require.NoError(t, repo.Create(ctx, newBillRow(4, "Acme_Co", 2)))

	all, err := repo.List(ctx, BillFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "TB-000004", all[0].BillNumber, "newest first")
	assert.Equal(t, "TB-000001", all[3].BillNumber)

	staff := uint(3)
	mine, err := repo.List(ctx, BillFilter{CreatedBy: &staff})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, b := range mine {
		assert.Equal(t, staff, b.CreatedBy)
	}

	acme, err := repo.List(ctx, BillFilter{CustomerName: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 3)

	mineAcme, err := repo.List(ctx, BillFilter{CreatedBy: &staff, CustomerName: "acme"})
	require.NoError(t, err)
	require.Len(t, mineAcme, 1)
	assert.Equal(t, "ACME Logistics", mineAcme[0].CustomerName)

	pct, err := repo.List(ctx, BillFilter{CustomerName: "100%"})
	require.NoError(t, err)
	require.Len(t, pct, 1)

	underscore, err := repo.List(ctx, BillFilter{CustomerName: "e_c"})
	require.NoError(t, err)
	require.Len(t, underscore, 1, "underscore is literal")
	assert.Equal(t, "Acme_Co", underscore[0].CustomerName)
}

func TestBillRepository_UpdateLeavesExportBookkeeping(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	bill := newBillRow(1, "Acme", 2)
	require.NoError(t, repo.Create(ctx, bill))
	require.NoError(t, repo.MarkExported(ctx, bill.ID, baseTime.Add(time.Hour)))

	stale := newBillRow(1, "Acme Renamed", 2)
	stale.ID = bill.ID
	stale.StaffName = "someone else"
	require.NoError(t, repo.Update(ctx, stale))

	got, err := repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", got.CustomerName)
	assert.Equal(t, "staff-2", got.StaffName, "provenance is not editable")
	assert.Equal(t, 1, got.ExportCount)
	require.NotNil(t, got.LastExportedAt)
}

func TestBillRepository_UpdateMissingBill(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	bill := newBillRow(1, "Acme", 2)
	require.NoError(t, repo.Create(ctx, bill))
	require.NoError(t, repo.Delete(ctx, bill.ID))

	bill.CustomerName = "Acme Renamed"
	assert.True(t, IsNotFound(repo.Update(ctx, bill)))
}

func TestBillRepository_MarkExportedAndDelete(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	bill := newBillRow(1, "Acme", 2)
	require.NoError(t, repo.Create(ctx, bill))

	require.NoError(t, repo.MarkExported(ctx, bill.ID, baseTime))
	require.NoError(t, repo.MarkExported(ctx, bill.ID, baseTime.Add(time.Minute)))

	got, err := repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ExportCount)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(118)))

	require.NoError(t, repo.Delete(ctx, bill.ID))
	_, err = repo.GetByID(ctx, bill.ID)
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(repo.Delete(ctx, bill.ID)))
	assert.True(t, IsNotFound(repo.MarkExported(ctx, bill.ID, baseTime)))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBillRepository_Summary(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBillRow(1, "Acme", 2)))
	require.NoError(t, repo.Create(ctx, newBillRow(2, "Acme", 2)))
	require.NoError(t, repo.Create(ctx, newBillRow(3, "Bharat", 3)))

	rows, err := repo.Summary(ctx, BillFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint(2), rows[0].CreatedBy)
	assert.Equal(t, "staff-2", rows[0].StaffName)
	assert.Equal(t, int64(2), rows[0].BillCount)
	assert.True(t, rows[0].TotalAmount.Equal(decimal.NewFromInt(236)), rows[0].TotalAmount.String())
	assert.True(t, rows[0].GSTAmount.Equal(decimal.NewFromInt(36)))

	staff := uint(3)
	rows, err = repo.Summary(ctx, BillFilter{CreatedBy: &staff})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].BillCount)
}

func TestBillRepository_Events(t *testing.T) {
	repo := NewBillRepository(testdb.New(t))
	ctx := context.Background()

	bill := newBillRow(1, "Acme", 2)
	require.NoError(t, repo.Create(ctx, bill))

	for i, kind := range []string{"CREATE", "UPDATE", "EXPORT"} {
		require.NoError(t, repo.CreateEvent(ctx, &models.BillEvent{
			BillID:      bill.ID,
			BillNumber:  bill.BillNumber,
			EventType:   kind,
			PerformedBy: 2,
			CreatedAt:   baseTime.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := repo.ListEvents(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "CREATE", events[0].EventType)
	assert.Equal(t, "EXPORT", events[2].EventType)

	none, err := repo.ListEvents(ctx, bill.ID+1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "a!%b!_c!!", EscapeLike("a%b_c!"))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("connection refused")))
	assert.True(t, IsDuplicateKey(errors.New("Error 1062: Duplicate entry 'TB-000001' for key 'bill_number'")))
	assert.True(t, IsDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "idx_bills_bill_number"`)))
}
