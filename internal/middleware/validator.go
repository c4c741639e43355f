package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/automaton-forensics/internal/infra/storage"
)

// Input validation and sanitization utilities

const maxToolNameLen = 64

var (
	reportIDPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	reportSuffix    = "_analysis.json"
)

// SanitizeToolNames trims names and drops empty or oversized entries.
// Unknown names are kept: the dispatcher reports them as not configured.
func SanitizeToolNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = SanitizeString(t)
		if t == "" || len(t) > maxToolNameLen {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SanitizeFilename keeps only the base name of a client supplied filename.
func SanitizeFilename(name string) string {
	return storage.BaseName(SanitizeString(name))
}

// ValidateReportName only allows report documents living directly in the
// upload directory.
func ValidateReportName(name string) error {
	if name == "" {
		return fmt.Errorf("report name cannot be empty")
	}
	if storage.BaseName(name) != name || strings.Contains(name, "..") {
		return fmt.Errorf("path traversal detected")
	}
	if !strings.HasSuffix(name, reportSuffix) {
		return fmt.Errorf("not a report file")
	}
	return nil
}

// ValidateReportID validates report ID format (uuid)
func ValidateReportID(id string) error {
	if !reportIDPattern.MatchString(id) {
		return fmt.Errorf("invalid report ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
