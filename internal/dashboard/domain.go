// internal/dashboard/domain.go
package dashboard

// Stats is the derived dashboard aggregate. It is computed from the store on
// every read and never persisted.
type Stats struct {
	TotalBooks     int `json:"totalBooks"`
	AvailableBooks int `json:"availableBooks"`
	TotalLoans     int `json:"totalLoans"`
	ActiveLoans    int `json:"activeLoans"`
	OverdueLoans   int `json:"overdueLoans"`
}
