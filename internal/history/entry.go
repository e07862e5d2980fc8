// internal/history/entry.go
package history

import "time"

// Statuses recorded for an entry
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HistoryEntry represents a single submitted prompt line
type HistoryEntry struct {
	ID           int64
	Database     string
	Query        string
	ExecutedAt   time.Time
	DurationMs   int64
	RowCount     int
	Status       string `json:"status"` // "success", "error"
	ErrorMessage string `json:"error_message,omitempty"`
}

// QueryPreview returns a truncated version of the query
func (e *HistoryEntry) QueryPreview(maxLen int) string {
	q := []rune(e.Query)
	if len(q) > maxLen && maxLen > 3 {
		return string(q[:maxLen-3]) + "..."
	}
	return e.Query
}
