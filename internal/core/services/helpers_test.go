package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/domain"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/metrics"
	"transport-billing/internal/pkg/password"
	"transport-billing/internal/pkg/testdb"
	"transport-billing/internal/pkg/validation"
)

var (
	startTime = time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)

	admin    = domain.Principal{ID: 1, Name: "Asha", Role: domain.RoleAdmin}
	staff    = domain.Principal{ID: 2, Name: "Ravi", Role: domain.RoleStaff}
	other    = domain.Principal{ID: 3, Name: "Meena", Role: domain.RoleStaff}
	customer = domain.Principal{ID: 4, Name: "Kiran", Role: domain.RoleCustomer}

	meta = RequestMeta{IPAddress: "10.0.0.7"}
)

func init() {
	password.Cost = bcrypt.MinCost
}

type stubRenderer struct {
	content []byte
	err     error
}

func (r stubRenderer) Render(_ context.Context, _ domain.Bill) ([]byte, error) {
	return r.content, r.err
}

type billFixture struct {
	db       *gorm.DB
	repo     repositories.BillRepository
	clock    *clock.FakeClock
	registry *prometheus.Registry
	svc      *BillService
}

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		NumberPrefix:     "TB-",
		NumberWidth:      6,
		GSTRate:          decimal.RequireFromString("0.18"),
		DefaultGSTNumber: domain.DefaultGSTNumber,
		MaxNumberRetries: 3,
	}
}

func newBillFixture(t *testing.T, renderer Renderer) *billFixture {
	t.Helper()

	db := testdb.New(t)
	repo := repositories.NewBillRepository(db)
	clk := clock.NewFakeClock(startTime)
	reg := prometheus.NewRegistry()
	cfg := testBillingConfig()

	svc := NewBillService(
		repo,
		NewNumberingService(cfg),
		NewExportService(renderer),
		validation.New(),
		cfg,
		clk,
		metrics.New(reg),
		zap.NewNop(),
	)
	return &billFixture{db: db, repo: repo, clock: clk, registry: reg, svc: svc}
}

func pdfRenderer() Renderer {
	return stubRenderer{content: []byte("%PDF-1.4 stub")}
}

func validBillInput() *CreateBillInput {
	return &CreateBillInput{
		CustomerName:     "Acme Traders",
		CustomerPhone:    "9876543210",
		VehicleNumber:    "KA-01-AB-1234",
		PackageCategory:  "Cartons",
		NumberOfPackages: 1,
		RatePerPackage:   decimal.RequireFromString("100.00"),
		FromLocation:     "Bengaluru",
		ToLocation:       "Mysuru",
	}
}

func (f *billFixture) create(t *testing.T, p domain.Principal, mutate func(*CreateBillInput)) *domain.Bill {
	t.Helper()
	in := validBillInput()
	if mutate != nil {
		mutate(in)
	}
	bill, err := f.svc.Create(context.Background(), p, in, meta)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return bill
}

func requireCounter(t *testing.T, reg *prometheus.Registry, name string, value string) {
	t.Helper()
	var help string
	switch name {
	case "bills_created_total":
		help = "Bills persisted with a freshly issued bill number."
	case "bills_exported_total":
		help = "Bills rendered to PDF."
	case "bill_number_conflicts_total":
		help = "Bill number uniqueness violations seen while creating bills."
	case "export_failures_total":
		help = "PDF renders that failed or produced no output."
	}
	full := "transport_billing_" + name
	expected := "# HELP " + full + " " + help + "\n# TYPE " + full + " counter\n" + full + " " + value + "\n"
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), full))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
