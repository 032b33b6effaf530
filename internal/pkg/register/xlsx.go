// Package register writes the bill register spreadsheet.
package register

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"transport-billing/internal/core/domain"
)

// SheetName is the worksheet holding the register
const SheetName = "Bills"

var headers = []string{
	"Bill Number", "Bill Date", "Customer", "Customer Phone", "GST Number",
	"Vehicle", "Category", "From", "To", "Packages", "Rate",
	"Sub Total", "GST Amount", "Total", "Staff", "Exports",
}

// Write renders bills as an xlsx workbook, one row per bill after a
// header row, followed by a totals row.
func Write(bills []domain.Bill) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range headers {
		if err := setCell(f, i+1, 1, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, headerStyle)
	}

	row := 2
	for _, b := range bills {
		values := []interface{}{
			b.BillNumber,
			b.BillDate.Format("2006-01-02"),
			b.CustomerName,
			b.CustomerPhone,
			b.GSTNumber,
			b.VehicleNumber,
			b.PackageCategory,
			b.FromLocation,
			b.ToLocation,
			b.NumberOfPackages,
			b.RatePerPackage.InexactFloat64(),
			b.SubTotal.InexactFloat64(),
			b.GSTAmount.InexactFloat64(),
			b.TotalAmount.InexactFloat64(),
			b.StaffName,
			b.ExportCount,
		}
		for col, value := range values {
			if err := setCell(f, col+1, row, value); err != nil {
				return nil, err
			}
		}
		row++
	}

	if len(bills) > 0 {
		if err := writeTotals(f, row, len(bills)); err != nil {
			return nil, err
		}
	}

	for i := range headers {
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, name, name, 16)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error removing default sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeTotals sums the money columns with formulas below the last bill row
func writeTotals(f *excelize.File, row, count int) error {
	if err := setCell(f, 1, row, "Total"); err != nil {
		return err
	}
	for col := 12; col <= 14; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		cell := fmt.Sprintf("%s%d", name, row)
		formula := fmt.Sprintf("SUM(%s2:%s%d)", name, name, count+1)
		if err := f.SetCellFormula(SheetName, cell, formula); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, value)
}
