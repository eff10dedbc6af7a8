// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libradesk/internal/apperr"
	"libradesk/pkg/database"
)

// service implements the Service interface.
type service struct {
	db *database.DB
}

// NewService creates a new catalog service instance.
func NewService(db *database.DB) Service {
	return &service{db: db}
}

// Create registers a new book. New books start out available.
func (s *service) Create(ctx context.Context, in CreateBookInput) (*Book, error) {
	if in.Title == "" || in.Author == "" || in.ISBN == "" || in.Category == "" || in.PublishedAt == 0 {
		return nil, apperr.Validation("all fields are required")
	}

	now := time.Now().UTC()
	book := &Book{
		ID:          uuid.New(),
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		Category:    in.Category,
		PublishedAt: in.PublishedAt,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := s.db.Rebind(`
		INSERT INTO books (id, title, author, isbn, category, published_at, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		book.ID, book.Title, book.Author, book.ISBN, book.Category, book.PublishedAt,
		book.Available, book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("isbn already registered")
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}

	return book, nil
}

// Get retrieves a book by its ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	query := s.db.Rebind(`SELECT * FROM books WHERE id = ?`)
	if err := s.db.GetContext(ctx, book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Update replaces the book's metadata. Editing metadata never touches loan
// state or the availability flag.
func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateBookInput) (*Book, error) {
	if in.Title == "" || in.Author == "" || in.ISBN == "" || in.Category == "" || in.PublishedAt == 0 {
		return nil, apperr.Validation("all fields are required")
	}

	query := s.db.Rebind(`
		UPDATE books
		SET title = ?, author = ?, isbn = ?, category = ?, published_at = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query,
		in.Title, in.Author, in.ISBN, in.Category, in.PublishedAt, time.Now().UTC(), id,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict("isbn already registered")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("book not found")
	}

	return s.Get(ctx, id)
}

// Delete removes a book. Books with an active loan cannot be deleted; loans
// that already finished are removed with the book to avoid dangling rows.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (*Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var active int
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM loans WHERE book_id = ? AND status = ?`)
		if err := tx.GetContext(ctx, &active, countQuery, id, "ACTIVE"); err != nil {
			return fmt.Errorf("count active loans: %w", err)
		}
		if active > 0 {
			return apperr.Conflict("book has active loans")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM loans WHERE book_id = ?`), id); err != nil {
			return fmt.Errorf("delete finished loans: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM books WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// List returns books newest first, optionally filtered by a free-text search
// over title/author/isbn and by category.
func (s *service) List(ctx context.Context, filter ListBooksFilter) ([]*Book, error) {
	ds := s.db.Builder().
		From("books").
		Order(goqu.I("created_at").Desc())

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.L("LOWER(title) LIKE ?", pattern),
			goqu.L("LOWER(author) LIKE ?", pattern),
			goqu.L("LOWER(isbn) LIKE ?", pattern),
		))
	}
	if filter.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(filter.Category))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book query: %w", err)
	}

	books := []*Book{}
	if err := s.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}
