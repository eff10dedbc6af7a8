// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the circulation service. Every mutation
// re-establishes the availability invariant atomically: the loan row and the
// book's available flag change together, or neither does.
type Service interface {
	Create(ctx context.Context, in CreateLoanInput) (*Loan, error)
	Get(ctx context.Context, id uuid.UUID) (*Loan, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateLoanInput) (*Loan, error)
	Return(ctx context.Context, id uuid.UUID) (*Loan, error)
	Delete(ctx context.Context, id uuid.UUID) (*Loan, error)
	List(ctx context.Context, filter ListLoansFilter) ([]*Loan, error)
}
