package services

import (
	"context"
	"errors"

	"transport-billing/internal/core/domain"
)

// PDFContentType is the media type of exported bills
const PDFContentType = "application/pdf"

var errEmptyDocument = errors.New("renderer produced an empty document")

// ExportResult is a rendered bill ready to be sent as an attachment
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService formats finalized bills through a Renderer
type ExportService struct {
	renderer Renderer
}

// NewExportService creates a new export service
func NewExportService(renderer Renderer) *ExportService {
	return &ExportService{renderer: renderer}
}

// ExportFilename is the attachment name of a bill's PDF
func ExportFilename(billNumber string) string {
	return "Invoice-" + billNumber + ".pdf"
}

// BuildExport renders bill. Renderer failures come back as *domain.ExportError
// and no partial output is returned.
func (s *ExportService) BuildExport(ctx context.Context, bill domain.Bill) (*ExportResult, error) {
	if bill.BillNumber == "" {
		return nil, &domain.ExportError{Cause: errors.New("bill has no number")}
	}

	content, err := s.renderer.Render(ctx, bill)
	if err != nil {
		return nil, &domain.ExportError{BillNumber: bill.BillNumber, Cause: err}
	}
	if len(content) == 0 {
		return nil, &domain.ExportError{BillNumber: bill.BillNumber, Cause: errEmptyDocument}
	}

	return &ExportResult{
		Filename:    ExportFilename(bill.BillNumber),
		ContentType: PDFContentType,
		Content:     content,
	}, nil
}
