package mysql

import (
	"encoding/json"
	"strings"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonOrEmpty returns "{}" for blank input and wraps invalid JSON as {"raw": ...}
func jsonOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(s), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}

func encodeReport(r *domain.Report) (reasons, results string, err error) {
	doc := r.Document()
	rb, err := json.Marshal(doc.Reasons)
	if err != nil {
		return "", "", err
	}
	xb, err := json.Marshal(doc.Results)
	if err != nil {
		return "", "", err
	}
	return string(rb), string(xb), nil
}

func decodeReport(r *domain.Report, reasons, results []byte) error {
	if err := json.Unmarshal(reasons, &r.Reasons); err != nil {
		return err
	}
	return json.Unmarshal(results, &r.Results)
}
