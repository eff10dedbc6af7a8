// internal/dashboard/service.go
package dashboard

import "context"

// Service defines the interface for the dashboard service.
type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}
