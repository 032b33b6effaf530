package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transport-billing/internal/core/domain"
)

func TestExportService_BuildExport(t *testing.T) {
	svc := NewExportService(pdfRenderer())

	result, err := svc.BuildExport(context.Background(), domain.Bill{BillNumber: "TB-000042"})
	require.NoError(t, err)
	assert.Equal(t, "Invoice-TB-000042.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Content)
}

func TestExportService_BuildExport_Failures(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		renderer Renderer
		bill     domain.Bill
	}{
		{"unnumbered bill", pdfRenderer(), domain.Bill{}},
		{"renderer error", stubRenderer{err: cause}, domain.Bill{BillNumber: "TB-000001"}},
		{"empty output", stubRenderer{content: []byte{}}, domain.Bill{BillNumber: "TB-000001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewExportService(tt.renderer).BuildExport(context.Background(), tt.bill)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrExportFailed)
		})
	}

	_, err := NewExportService(stubRenderer{err: cause}).BuildExport(context.Background(), domain.Bill{BillNumber: "TB-000001"})
	assert.ErrorIs(t, err, cause)
}
