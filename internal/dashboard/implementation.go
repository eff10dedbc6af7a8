// internal/dashboard/implementation.go
package dashboard

import (
	"context"
	"fmt"
	"time"

	"libradesk/pkg/database"
)

// service implements the Service interface. Aggregates are computed with
// COUNT queries at the store instead of fetching full tables and reducing in
// the caller.
type service struct {
	db *database.DB
}

// NewService creates a new dashboard service instance.
func NewService(db *database.DB) Service {
	return &service{db: db}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.TotalBooks, `SELECT COUNT(*) FROM books`, nil},
		{&stats.AvailableBooks, `SELECT COUNT(*) FROM books WHERE available = ?`, []any{true}},
		{&stats.TotalLoans, `SELECT COUNT(*) FROM loans`, nil},
		{&stats.ActiveLoans, `SELECT COUNT(*) FROM loans WHERE status = ?`, []any{"ACTIVE"}},
		{&stats.OverdueLoans, `SELECT COUNT(*) FROM loans WHERE status = ? AND due_date < ?`, []any{"ACTIVE", time.Now().UTC()}},
	}

	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, s.db.Rebind(c.query), c.args...); err != nil {
			return nil, fmt.Errorf("dashboard count: %w", err)
		}
	}

	return stats, nil
}
