package failures

import "time"

// ToolFailure represents a persisted tool failure entry
type ToolFailure struct {
	ID        int64     `json:"id"`
	ReportID  string    `json:"report_id"`
	File      string    `json:"file"`
	Tool      string    `json:"tool"`
	Kind      string    `json:"kind"` // timeout | binary-not-found | tool-not-configured | other
	Command   string    `json:"cmd,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
