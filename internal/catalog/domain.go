// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Book is a single title in the collection. Available mirrors whether an
// active loan references the book; only the circulation service mutates it.
type Book struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	ISBN        string    `json:"isbn" db:"isbn"`
	Category    string    `json:"category" db:"category"`
	PublishedAt int       `json:"publishedAt" db:"published_at"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateBookInput holds the fields required to register a book.
type CreateBookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Category    string `json:"category"`
	PublishedAt int    `json:"publishedAt"`
}

// UpdateBookInput replaces a book's metadata. Availability is not editable here.
type UpdateBookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Category    string `json:"category"`
	PublishedAt int    `json:"publishedAt"`
}

// ListBooksFilter narrows the book listing. Zero values mean no filtering.
type ListBooksFilter struct {
	Search   string
	Category string
}
