package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis represents an AI triage of one report, stored for auditing and retrieval
type Analysis struct {
	ID        AnalysisID `json:"id"`
	ReportID  string     `json:"report_id"`
	File      string     `json:"file"`
	Model     string     `json:"model,omitempty"`
	Result    string     `json:"result"` // JSON string from AI
	CreatedAt time.Time  `json:"created_at"`
}
