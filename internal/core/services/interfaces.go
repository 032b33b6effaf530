package services

import (
	"context"
	"errors"
	"fmt"

	"transport-billing/internal/core/domain"
)

// Renderer turns a finalized bill into document bytes
type Renderer interface {
	Render(ctx context.Context, bill domain.Bill) ([]byte, error)
}

// PrincipalResolver turns a bearer token into the acting principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (domain.Principal, error)
}

// RequestMeta carries request details recorded in the audit trail
type RequestMeta struct {
	IPAddress string
}

// passthrough errors already carry a domain meaning
var passthrough = []error{
	domain.ErrUnauthenticated,
	domain.ErrForbidden,
	domain.ErrValidation,
	domain.ErrStorageUnavailable,
	domain.ErrBillNotFound,
	domain.ErrDuplicateBillNumber,
	domain.ErrExportFailed,
	domain.ErrUserNotFound,
	domain.ErrUserAlreadyExists,
}

// storageError wraps an unclassified persistence failure onto
// domain.ErrStorageUnavailable, keeping the cause.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
