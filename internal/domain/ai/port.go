package ai

import "context"

// Client triages a serialized forensic report and returns the model's JSON answer.
type Client interface {
	Triage(ctx context.Context, reportJSON string) (string, error)
	Model() string
}
