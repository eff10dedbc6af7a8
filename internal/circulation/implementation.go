// internal/circulation/implementation.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/apperr"
	"libradesk/pkg/database"
)

// service implements the Service interface.
type service struct {
	db            *database.DB
	tracer        trace.Tracer
	loansCreated  metric.Int64Counter
	loanConflicts metric.Int64Counter
}

// NewService creates a new circulation service instance.
func NewService(db *database.DB) Service {
	meter := otel.Meter("libradesk/circulation")
	loansCreated, err := meter.Int64Counter("loans.created")
	if err != nil {
		log.Printf("register loans.created counter: %v", err)
	}
	loanConflicts, err := meter.Int64Counter("loans.conflicts")
	if err != nil {
		log.Printf("register loans.conflicts counter: %v", err)
	}

	return &service{
		db:            db,
		tracer:        otel.Tracer("libradesk/circulation"),
		loansCreated:  loansCreated,
		loanConflicts: loanConflicts,
	}
}

// Create lends an available book to an existing user. The availability claim
// and the loan insert happen in one transaction; the conditional UPDATE on
// the book row guarantees at most one active loan per book even under
// concurrent requests.
func (s *service) Create(ctx context.Context, in CreateLoanInput) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.create",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID.String()),
			attribute.String("book.id", in.BookID.String()),
		),
	)
	defer span.End()

	if in.UserID == uuid.Nil || in.BookID == uuid.Nil || in.DueDate.IsZero() {
		return nil, apperr.Validation("user, book and due date are required")
	}

	now := time.Now().UTC()
	loan := &Loan{
		ID:         uuid.New(),
		UserID:     in.UserID,
		BookID:     in.BookID,
		BorrowedAt: now,
		DueDate:    in.DueDate.UTC(),
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user := &UserSummary{}
		userQuery := tx.Rebind(`SELECT id, name, email FROM users WHERE id = ?`)
		if err := tx.GetContext(ctx, user, userQuery, in.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("user not found")
			}
			return fmt.Errorf("get user: %w", err)
		}

		if err := claimBook(ctx, tx, in.BookID, now); err != nil {
			return err
		}

		book := &BookSummary{}
		bookQuery := tx.Rebind(`SELECT id, title, author, isbn FROM books WHERE id = ?`)
		if err := tx.GetContext(ctx, book, bookQuery, in.BookID); err != nil {
			return fmt.Errorf("get book: %w", err)
		}

		insert := tx.Rebind(`
			INSERT INTO loans (id, user_id, book_id, borrowed_at, due_date, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if _, err := tx.ExecContext(ctx, insert,
			loan.ID, loan.UserID, loan.BookID, loan.BorrowedAt, loan.DueDate, loan.Status,
			loan.CreatedAt, loan.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}

		loan.User = user
		loan.Book = book
		return nil
	})
	if err != nil {
		if apperr.IsConflict(err) {
			s.loanConflicts.Add(ctx, 1)
		}
		span.SetAttributes(attribute.Bool("loan.created", false))
		return nil, err
	}

	s.loansCreated.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("loan.created", true))
	return loan, nil
}

// claimBook flips the book to unavailable iff it is currently available.
// Zero affected rows means the book is either missing or already lent out.
func claimBook(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, now time.Time) error {
	claim := tx.Rebind(`UPDATE books SET available = ?, updated_at = ? WHERE id = ? AND available = ?`)
	res, err := tx.ExecContext(ctx, claim, false, now, bookID, true)
	if err != nil {
		return fmt.Errorf("claim book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim book rows: %w", err)
	}
	if n == 0 {
		var exists int
		existsQuery := tx.Rebind(`SELECT COUNT(*) FROM books WHERE id = ?`)
		if err := tx.GetContext(ctx, &exists, existsQuery, bookID); err != nil {
			return fmt.Errorf("check book: %w", err)
		}
		if exists == 0 {
			return apperr.NotFound("book not found")
		}
		return apperr.Conflict("book is not available for loan")
	}
	return nil
}

// releaseBook re-derives the book's available flag from its remaining active
// loans. Deleting a finished loan must not free a book another active loan
// still holds.
func releaseBook(ctx context.Context, tx *sqlx.Tx, bookID uuid.UUID, now time.Time) error {
	release := tx.Rebind(`
		UPDATE books
		SET available = (NOT EXISTS (SELECT 1 FROM loans WHERE book_id = ? AND status = ?)),
		    updated_at = ?
		WHERE id = ?
	`)
	if _, err := tx.ExecContext(ctx, release, bookID, StatusActive, now, bookID); err != nil {
		return fmt.Errorf("release book: %w", err)
	}
	return nil
}

// Get retrieves a loan with its user and book summaries.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	loans, err := s.query(ctx, `WHERE l.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, apperr.NotFound("loan not found")
	}
	return loans[0], nil
}

// Update edits the loan's user, book and due date. Moving an active loan to
// another book releases the old one and claims the new one in the same
// transaction, so the availability invariant keeps holding.
func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateLoanInput) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.update",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	now := time.Now().UTC()

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		loan := &Loan{}
		loanQuery := tx.Rebind(`SELECT * FROM loans WHERE id = ?`)
		if err := tx.GetContext(ctx, loan, loanQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("loan not found")
			}
			return fmt.Errorf("get loan: %w", err)
		}

		if in.UserID != nil && *in.UserID != loan.UserID {
			var exists int
			userQuery := tx.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`)
			if err := tx.GetContext(ctx, &exists, userQuery, *in.UserID); err != nil {
				return fmt.Errorf("check user: %w", err)
			}
			if exists == 0 {
				return apperr.NotFound("user not found")
			}
			loan.UserID = *in.UserID
		}

		var releasedBook *uuid.UUID
		if in.BookID != nil && *in.BookID != loan.BookID {
			if loan.Status == StatusActive {
				if err := claimBook(ctx, tx, *in.BookID, now); err != nil {
					return err
				}
				oldBook := loan.BookID
				releasedBook = &oldBook
			} else {
				var exists int
				bookQuery := tx.Rebind(`SELECT COUNT(*) FROM books WHERE id = ?`)
				if err := tx.GetContext(ctx, &exists, bookQuery, *in.BookID); err != nil {
					return fmt.Errorf("check book: %w", err)
				}
				if exists == 0 {
					return apperr.NotFound("book not found")
				}
			}
			loan.BookID = *in.BookID
		}

		if in.DueDate != nil {
			loan.DueDate = in.DueDate.UTC()
		}

		update := tx.Rebind(`UPDATE loans SET user_id = ?, book_id = ?, due_date = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, update, loan.UserID, loan.BookID, loan.DueDate, now, id); err != nil {
			return fmt.Errorf("update loan: %w", err)
		}

		// release after the loan row points at the new book, so the
		// availability recompute sees the final state
		if releasedBook != nil {
			return releaseBook(ctx, tx, *releasedBook, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Return marks an active loan returned and makes the book available again.
func (s *service) Return(ctx context.Context, id uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	now := time.Now().UTC()

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		loan := &Loan{}
		loanQuery := tx.Rebind(`SELECT * FROM loans WHERE id = ?`)
		if err := tx.GetContext(ctx, loan, loanQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("loan not found")
			}
			return fmt.Errorf("get loan: %w", err)
		}
		if loan.Status == StatusReturned {
			return apperr.Conflict("loan already returned")
		}

		update := tx.Rebind(`UPDATE loans SET status = ?, returned_at = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, update, StatusReturned, now, now, id); err != nil {
			return fmt.Errorf("mark loan returned: %w", err)
		}

		return releaseBook(ctx, tx, loan.BookID, now)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the loan row and makes the book available again, whatever
// the loan's prior status was.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.delete",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM loans WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete loan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("loan not found")
		}
		return releaseBook(ctx, tx, loan.BookID, now)
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// List returns loans newest first with joined user and book summaries,
// optionally filtered by status.
func (s *service) List(ctx context.Context, filter ListLoansFilter) ([]*Loan, error) {
	if filter.Status != "" {
		return s.query(ctx, `WHERE l.status = ?`, filter.Status)
	}
	return s.query(ctx, ``)
}

func (s *service) query(ctx context.Context, where string, args ...any) ([]*Loan, error) {
	query := s.db.Rebind(fmt.Sprintf(`
		SELECT l.id, l.user_id, l.book_id, l.borrowed_at, l.due_date, l.returned_at,
		       l.status, l.created_at, l.updated_at,
		       u.id, u.name, u.email,
		       b.id, b.title, b.author, b.isbn
		FROM loans l
		JOIN users u ON u.id = l.user_id
		JOIN books b ON b.id = l.book_id
		%s
		ORDER BY l.created_at DESC
	`, where))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		loan := &Loan{User: &UserSummary{}, Book: &BookSummary{}}
		if err := rows.Scan(
			&loan.ID, &loan.UserID, &loan.BookID, &loan.BorrowedAt, &loan.DueDate, &loan.ReturnedAt,
			&loan.Status, &loan.CreatedAt, &loan.UpdatedAt,
			&loan.User.ID, &loan.User.Name, &loan.User.Email,
			&loan.Book.ID, &loan.Book.Title, &loan.Book.Author, &loan.Book.ISBN,
		); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}
