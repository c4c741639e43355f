package forensics

import (
	"encoding/json"
	"time"
)

// ReportID tipe untuk Report
type ReportID string

// ToolName nama tool di registry, misal "exiftool"
type ToolName string

// ErrorKind klasifikasi kegagalan satu tool
type ErrorKind string

const (
	ErrorTimeout           ErrorKind = "timeout"
	ErrorBinaryNotFound    ErrorKind = "binary-not-found"
	ErrorToolNotConfigured ErrorKind = "tool-not-configured"
	ErrorOther             ErrorKind = "other"
)

// Failure describes why a tool produced no output.
type Failure struct {
	Kind    ErrorKind
	Message string
}

// Error returns the text stored in the report's "error" field: the kind,
// or the diagnostic message for ErrorOther.
func (f Failure) Error() string {
	if f.Kind == ErrorOther && f.Message != "" {
		return f.Message
	}
	return string(f.Kind)
}

// ToolResult is either a success (Failure == nil) or a failure. Build it
// with Succeeded or Failed and treat it as a value.
type ToolResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Failure  *Failure
}

func Succeeded(command string, exitCode int, stdout, stderr string, elapsed time.Duration) ToolResult {
	return ToolResult{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Elapsed:  elapsed,
	}
}

func Failed(command string, kind ErrorKind, message string) ToolResult {
	return ToolResult{Command: command, Failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether the tool ran to completion (any exit code).
func (r ToolResult) OK() bool { return r.Failure == nil }

// Kind returns the failure kind or "" for a success.
func (r ToolResult) Kind() ErrorKind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}

type successJSON struct {
	Cmd        string  `json:"cmd"`
	ReturnCode int     `json:"returncode"`
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`
	Elapsed    float64 `json:"elapsed"`
}

type failureJSON struct {
	Cmd   string `json:"cmd,omitempty"`
	Error string `json:"error"`
}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(failureJSON{Cmd: r.Command, Error: r.Failure.Error()})
	}
	return json.Marshal(successJSON{
		Cmd:        r.Command,
		ReturnCode: r.ExitCode,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
		Elapsed:    r.Elapsed.Seconds(),
	})
}

func (r *ToolResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Cmd        string  `json:"cmd"`
		ReturnCode int     `json:"returncode"`
		Stdout     string  `json:"stdout"`
		Stderr     string  `json:"stderr"`
		Elapsed    float64 `json:"elapsed"`
		Error      *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != nil {
		*r = Failed(raw.Cmd, ParseErrorKind(*raw.Error), *raw.Error)
		if r.Failure.Kind != ErrorOther {
			r.Failure.Message = ""
		}
		return nil
	}
	*r = Succeeded(raw.Cmd, raw.ReturnCode, raw.Stdout, raw.Stderr,
		time.Duration(raw.Elapsed*float64(time.Second)))
	return nil
}

// ParseErrorKind maps a stored "error" value back to its kind. Anything
// unknown is a diagnostic message, i.e. ErrorOther.
func ParseErrorKind(s string) ErrorKind {
	switch ErrorKind(s) {
	case ErrorTimeout, ErrorBinaryNotFound, ErrorToolNotConfigured:
		return ErrorKind(s)
	default:
		return ErrorOther
	}
}

// Results hasil semua tool untuk satu file
type Results map[ToolName]ToolResult

// Verdict label risiko
type Verdict string

const (
	VerdictClean      Verdict = "Likely Clean"
	VerdictSuspicious Verdict = "Possibly Suspicious"
	VerdictMalicious  Verdict = "Likely Malicious"
)

// Aggregate Root: Report
type Report struct {
	ID          ReportID  `json:"id"`
	File        string    `json:"file"`
	Score       int       `json:"score"`
	Verdict     Verdict   `json:"verdict"`
	Reasons     []string  `json:"reasons"`
	Results     Results   `json:"results"`
	JSONName    string    `json:"json_name,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is the downloadable report file: exactly file, score, verdict,
// reasons and results.
type Document struct {
	File    string   `json:"file"`
	Score   int      `json:"score"`
	Verdict Verdict  `json:"verdict"`
	Reasons []string `json:"reasons"`
	Results Results  `json:"results"`
}

func (r *Report) Document() Document {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	results := r.Results
	if results == nil {
		results = Results{}
	}
	return Document{
		File:    r.File,
		Score:   r.Score,
		Verdict: r.Verdict,
		Reasons: reasons,
		Results: results,
	}
}

// ReportName nama file JSON laporan untuk file yang dianalisis
func ReportName(filename string) string {
	return filename + "_analysis.json"
}
