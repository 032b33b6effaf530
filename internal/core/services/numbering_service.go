package services

import (
	"context"
	"fmt"

	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/billing"
	"transport-billing/internal/core/domain"
)

// BillSequenceName is the counter row that numbers bills
const BillSequenceName = billing.SequenceName

// NumberingService issues bill numbers from an atomically reserved counter
type NumberingService struct {
	prefix string
	width  int
}

// NewNumberingService creates a new numbering service
func NewNumberingService(cfg config.BillingConfig) *NumberingService {
	prefix, width := cfg.NumberPrefix, cfg.NumberWidth
	if width < 1 {
		width = billing.DefaultNumberWidth
	}
	return &NumberingService{prefix: prefix, width: width}
}

// IssueNext reserves the next bill number through repo. repo must be bound
// to the transaction that inserts the bill so a rollback returns the number.
func (s *NumberingService) IssueNext(ctx context.Context, repo repositories.BillRepository) (string, error) {
	seq, err := repo.ReserveNumber(ctx, BillSequenceName)
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			return "", fmt.Errorf("%w: sequence row raced on first use", domain.ErrDuplicateBillNumber)
		}
		return "", storageError("reserve bill number", err)
	}
	return billing.FormatBillNumber(s.prefix, s.width, seq)
}

// SkipPast moves the sequence beyond a number found already taken, so the
// next IssueNext does not hand it out again. Numbers in a foreign format
// are ignored.
func (s *NumberingService) SkipPast(ctx context.Context, repo repositories.BillRepository, number string) error {
	seq, err := billing.ParseBillNumber(s.prefix, number)
	if err != nil {
		return nil
	}
	if err := repo.AdvanceSequence(ctx, BillSequenceName, seq+1); err != nil {
		return storageError("advance bill sequence", err)
	}
	return nil
}
