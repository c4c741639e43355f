package forensics

import (
	"fmt"
	"strings"
)

// headerWindow is how many leading characters of the strings output are
// searched for executable magic.
const headerWindow = 800

var secretKeywords = []string{"password", "secret", "key=", "private key", "-----begin"}

// Assessment hasil scoring
type Assessment struct {
	Score   int      `json:"score"`
	Verdict Verdict  `json:"verdict"`
	Reasons []string `json:"reasons"`
}

// Score applies the fixed heuristics to the tool outputs of one file. It
// is pure: same input, same Assessment.
func Score(results Results, filename string) Assessment {
	score := 0
	var reasons []string
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	name := strings.ToLower(filename)

	// tipe file vs ekstensi
	if out := stdout(results, ToolFile); out != "" {
		s := strings.ToLower(out)
		if strings.Contains(s, "jpeg") && !hasAnySuffix(name, ".jpg", ".jpeg") {
			add(15, "File type says JPEG but extension mismatch")
		}
		if strings.Contains(s, "png") && !strings.HasSuffix(name, ".png") {
			add(12, "File type says PNG but extension mismatch")
		}
		if strings.Contains(s, "pdf") && !strings.HasSuffix(name, ".pdf") {
			add(14, "File says PDF but extension mismatch")
		}
	}

	if out := strings.ToLower(stdout(results, ToolStrings)); out != "" {
		head := firstRunes(out, headerWindow)
		if strings.Contains(head, "mz") {
			add(25, "Found MZ header inside file, possible embedded PE executable")
		}
		if strings.Contains(head, "elf") {
			add(22, "Found ELF header inside file, possible embedded binary")
		}
		for _, kw := range secretKeywords {
			if strings.Contains(out, kw) {
				add(8, fmt.Sprintf("Found suspicious keyword: %s", kw))
			}
		}
	}

	if out := strings.TrimSpace(stdout(results, ToolBinwalk)); out != "" {
		if n := countLines(out); n > 2 {
			add(min(25, 5+n), fmt.Sprintf("Binwalk found embedded content (%d lines)", n))
		}
	}

	// ffprobe dulu, mediainfo hanya kalau ffprobe tidak ada
	media, ok := results[ToolFFprobe]
	if !ok {
		media, ok = results[ToolMediainfo]
	}
	if ok && media.OK() && media.Stderr != "" {
		add(10, "ffprobe/mediainfo reported errors parsing media")
	}

	if strings.Contains(stdout(results, ToolReadelf), "ELF") {
		add(25, "readelf reports ELF header inside file")
	}

	score = Clamp(score)
	return Assessment{Score: score, Verdict: VerdictFor(score), Reasons: reasons}
}

// Clamp limits a raw score to [0,100].
func Clamp(score int) int {
	return max(0, min(100, score))
}

// VerdictFor maps a score to its label.
func VerdictFor(score int) Verdict {
	switch {
	case score >= 50:
		return VerdictMalicious
	case score >= 25:
		return VerdictSuspicious
	default:
		return VerdictClean
	}
}

func stdout(results Results, tool ToolName) string {
	r, ok := results[tool]
	if !ok || !r.OK() {
		return ""
	}
	return r.Stdout
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// countLines counts lines the way Python's str.splitlines does: every
// line boundary below ends a line, "\r\n" counts once, and a trailing
// boundary does not open an empty line.
func countLines(s string) int {
	n := 0
	pending := false
	for i, r := range s {
		switch r {
		case '\n':
			if i > 0 && s[i-1] == '\r' {
				continue
			}
		case '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		default:
			pending = true
			continue
		}
		n++
		pending = false
	}
	if pending {
		n++
	}
	return n
}
