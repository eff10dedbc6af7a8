// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	Create(ctx context.Context, in CreateBookInput) (*Book, error)
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateBookInput) (*Book, error)
	Delete(ctx context.Context, id uuid.UUID) (*Book, error)
	List(ctx context.Context, filter ListBooksFilter) ([]*Book, error)
}
