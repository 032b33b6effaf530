package pdf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"transport-billing/internal/core/domain"
)

const dateLayout = "02 Jan 2006"

// Company is printed in the invoice header
type Company struct {
	Name      string
	Address   string
	Phone     string
	GSTNumber string
}

// InvoiceRenderer renders a bill as a one page tax invoice
type InvoiceRenderer struct {
	company Company
}

func NewInvoiceRenderer(company Company) *InvoiceRenderer {
	return &InvoiceRenderer{company: company}
}

// Render produces the PDF bytes for bill
func (r *InvoiceRenderer) Render(ctx context.Context, bill domain.Bill) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bill.BillNumber == "" {
		return nil, errors.New("bill has no number")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, r.company.Name, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "TAX INVOICE", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(8).Add(
			text.New(r.company.Address, props.Text{Size: 9}),
			text.New("Phone: "+orDash(r.company.Phone), props.Text{Size: 9, Top: 5}),
			text.New("GSTIN: "+orDash(r.company.GSTNumber), props.Text{Size: 9, Top: 10}),
		),
		col.New(4).Add(
			text.New("Bill No: "+bill.BillNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+bill.BillDate.Format(dateLayout), props.Text{Size: 9, Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(26,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(bill.CustomerName, props.Text{Top: 5}),
			text.New("Phone: "+orDash(bill.CustomerPhone), props.Text{Size: 9, Top: 10}),
			text.New("GSTIN: "+orDash(bill.GSTNumber), props.Text{Size: 9, Top: 15}),
		),
		col.New(6).Add(
			text.New("Consignment", props.Text{Style: fontstyle.Bold}),
			text.New("Vehicle: "+bill.VehicleNumber, props.Text{Size: 9, Top: 5}),
			text.New("From: "+bill.FromLocation, props.Text{Size: 9, Top: 10}),
			text.New("To: "+bill.ToLocation, props.Text{Size: 9, Top: 15}),
		),
	)

	// Line items
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Packages", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, bill.PackageCategory, props.Text{Size: 9}),
		text.NewCol(2, strconv.Itoa(bill.NumberOfPackages), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(bill.RatePerPackage), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(bill.SubTotal), props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, money(bill.SubTotal), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, fmt.Sprintf("GST @ %s%%", bill.GSTRate.Shift(2).String()), props.Text{Size: 9}),
		text.NewCol(2, money(bill.GSTAmount), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, money(bill.TotalAmount), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	m.AddRow(15,
		text.NewCol(12, "Prepared by "+orDash(bill.StaffName), props.Text{Size: 8, Top: 8}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice %s: %w", bill.BillNumber, err)
	}

	return doc.GetBytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
