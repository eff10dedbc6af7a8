// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

// Loan records a book lent to a user. A book has at most one ACTIVE loan at
// any time; the catalog's available flag mirrors that.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"userId" db:"user_id"`
	BookID     uuid.UUID  `json:"bookId" db:"book_id"`
	BorrowedAt time.Time  `json:"borrowedAt" db:"borrowed_at"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
	Status     Status     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`

	User *UserSummary `json:"user,omitempty" db:"-"`
	Book *BookSummary `json:"book,omitempty" db:"-"`
}

// UserSummary is the denormalized borrower detail attached to loan reads.
type UserSummary struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}

// BookSummary is the denormalized book detail attached to loan reads.
type BookSummary struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Title  string    `json:"title" db:"title"`
	Author string    `json:"author" db:"author"`
	ISBN   string    `json:"isbn" db:"isbn"`
}

// CreateLoanInput holds the fields required to lend a book.
type CreateLoanInput struct {
	UserID  uuid.UUID
	BookID  uuid.UUID
	DueDate time.Time
}

// UpdateLoanInput edits an existing loan. Nil fields are left unchanged.
type UpdateLoanInput struct {
	UserID  *uuid.UUID
	BookID  *uuid.UUID
	DueDate *time.Time
}

// ListLoansFilter narrows the loan listing. An empty status means all loans.
type ListLoansFilter struct {
	Status Status
}
