package ai

import "errors"

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrEmptyAnswer means the provider answered without any choice.
	ErrEmptyAnswer = errors.New("ai returned no answer")
)
