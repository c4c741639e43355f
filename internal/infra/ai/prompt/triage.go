package prompt

import (
	"encoding/json"
	"fmt"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// maxToolOutput caps each tool's stdout/stderr inside the prompt.
const maxToolOutput = 4000

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior digital forensics analyst. You receive the raw output of command-line metadata and forensic tools (exiftool, strings, binwalk, file, readelf, ffprobe...) run against one uploaded file, plus a heuristic suspicion score. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase severity values: critical, high, medium, low, info.
- Base every finding on evidence quoted from the tool output; do not invent tool output.
- agree_with_verdict is false when the evidence contradicts the heuristic verdict.
- Tools that failed (timeout, binary-not-found, tool-not-configured) are missing evidence, not findings.

Schema (example with empty values):
{
  "file": "<string>",
  "agree_with_verdict": true,
  "findings": [
    {
      "title": "<string>",
      "severity": "<critical|high|medium|low|info>",
      "evidence": "<string>",
      "recommendation": "<string>"
    }
  ],
  "next_steps": ["<string>"],
  "summary": "<string>"
}`
}

// GetUserPrompt wraps the report JSON in the user message.
func GetUserPrompt(reportJSON string) string {
	return fmt.Sprintf("Triage this forensic report and respond with the JSON per schema.\nREPORT:\n%s", reportJSON)
}

// Triage matches the schema requested by the system prompt.
type Triage struct {
	File             string    `json:"file"`
	AgreeWithVerdict bool      `json:"agree_with_verdict"`
	Findings         []Finding `json:"findings"`
	NextSteps        []string  `json:"next_steps"`
	Summary          string    `json:"summary"`
}

type Finding struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Evidence       string `json:"evidence"`
	Recommendation string `json:"recommendation"`
}

// ParseTriage checks the model answer is a JSON object of the expected shape.
func ParseTriage(answer string) (Triage, error) {
	var t Triage
	if err := json.Unmarshal([]byte(answer), &t); err != nil {
		return Triage{}, fmt.Errorf("triage answer is not valid JSON: %w", err)
	}
	return t, nil
}

// CompactReport serializes a report document with long tool outputs cut
// down so the prompt stays within model limits.
func CompactReport(doc domain.Document) (string, error) {
	results := make(domain.Results, len(doc.Results))
	for name, res := range doc.Results {
		if res.OK() {
			res = domain.Succeeded(res.Command, res.ExitCode,
				truncate(res.Stdout, maxToolOutput), truncate(res.Stderr, maxToolOutput), res.Elapsed)
		}
		results[name] = res
	}
	doc.Results = results
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// potong di batas rune
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n] + "...[truncated]"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
