package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// maxFindings keeps the offline answer compact.
const maxFindings = 20

// LocalAnalyzer is an offline triage client. It answers with the same
// schema as the chat model, built from the report reasons and a set of
// credential detectors run over the strings/exiftool output.
type LocalAnalyzer struct{}

func (LocalAnalyzer) Model() string { return "local-heuristic" }

func (LocalAnalyzer) Triage(_ context.Context, reportJSON string) (string, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(reportJSON), &doc); err != nil {
		return "", fmt.Errorf("decode report: %w", err)
	}
	b, err := json.Marshal(AnalyzeReport(doc))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// credential detectors (critical)
var detectors = []struct {
	re             *regexp.Regexp
	title          string
	recommendation string
}{
	{regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), "Private key material embedded", "Carve the key block, identify its owner and rotate it."},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AWS access key embedded", "Revoke the access key and audit CloudTrail for its use."},
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`), "GitHub token embedded", "Revoke the token and review the account audit log."},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "Google API key embedded", "Restrict and rotate the key."},
	{regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`), "Slack token embedded", "Revoke the token in Slack admin."},
	{regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`), "Stripe secret key embedded", "Rotate the key in the Stripe dashboard."},
	{regexp.MustCompile(`[A-Za-z0-9-_]{8,}\.eyJ[A-Za-z0-9-_]{5,}\.[A-Za-z0-9-_]{10,}`), "JWT present", "Decode the token offline and invalidate the session it belongs to."},
	{regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`), "Credentials embedded in URL", "Treat the credentials as leaked and rotate them."},
}

// severity per reason prefix; anything else is low
var reasonSeverity = []struct {
	prefix   string
	severity string
	advice   string
}{
	{"Found MZ header", "high", "Carve the embedded executable (binwalk -e) and scan it in a sandbox."},
	{"Found ELF header", "high", "Carve the embedded binary and inspect it with readelf/objdump."},
	{"readelf reports ELF", "high", "The file is an ELF binary; check whether that matches its claimed type."},
	{"Binwalk found embedded", "medium", "Extract the embedded content with binwalk -e and analyze each part."},
	{"File type says", "medium", "Compare magic bytes with the extension; a mismatch is a common masquerading trick."},
	{"File says PDF", "medium", "Compare magic bytes with the extension; a mismatch is a common masquerading trick."},
	{"ffprobe/mediainfo reported", "low", "Check whether the container is malformed on purpose (polyglot or exploit sample)."},
}

// AnalyzeReport builds an offline triage of one report document.
func AnalyzeReport(doc domain.Document) Triage {
	out := Triage{File: doc.File, AgreeWithVerdict: true}
	add := func(sev, title, evidence, rec string) {
		out.Findings = append(out.Findings, Finding{Title: title, Severity: sev, Evidence: evidence, Recommendation: rec})
	}

	for _, reason := range doc.Reasons {
		sev, rec := "low", "Review the matching strings in context."
		for _, rs := range reasonSeverity {
			if strings.HasPrefix(reason, rs.prefix) {
				sev, rec = rs.severity, rs.advice
				break
			}
		}
		add(sev, reason, reason, rec)
	}

	critical := 0
	for _, tool := range []domain.ToolName{domain.ToolStrings, domain.ToolExiftool} {
		res, ok := doc.Results[tool]
		if !ok || !res.OK() {
			continue
		}
		for _, d := range detectors {
			if m := d.re.FindString(res.Stdout); m != "" {
				add("critical", d.title, fmt.Sprintf("%s: %s", tool, trim(m, 64)), d.recommendation)
				critical++
			}
		}
	}
	// secrets in a "clean" file contradict the verdict
	if critical > 0 && doc.Verdict == domain.VerdictClean {
		out.AgreeWithVerdict = false
	}

	var missing []string
	for name, res := range doc.Results {
		if !res.OK() {
			missing = append(missing, fmt.Sprintf("re-run %s (%s)", name, res.Failure.Error()))
		}
	}
	sort.Strings(missing)
	out.NextSteps = missing

	if len(out.Findings) == 0 {
		add("info", "No indicators", "no heuristic matched", "Keep the original file and hash it for reference.")
	}
	if len(out.Findings) > maxFindings {
		out.Findings = out.Findings[:maxFindings]
	}

	switch {
	case critical > 0:
		out.Summary = "Embedded credentials found; treat the file as a leak and rotate what it contains."
	case doc.Verdict == domain.VerdictMalicious:
		out.Summary = "Strong indicators of embedded executable content; analyze in an isolated sandbox."
	case doc.Verdict == domain.VerdictSuspicious:
		out.Summary = "Some indicators present; carve and inspect the flagged content before trusting the file."
	default:
		out.Summary = "No strong indicators; the file looks consistent with its type."
	}
	return out
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
