package forensics

import (
	"fmt"
	"sort"
	"strings"
)

// FilePlaceholder is replaced with the target path in a command template.
const FilePlaceholder = "{file}"

const (
	ToolExiftool  ToolName = "exiftool"
	ToolExiv2     ToolName = "exiv2"
	ToolIdentify  ToolName = "identify"
	ToolMat2      ToolName = "mat2"
	ToolStrings   ToolName = "strings"
	ToolBinwalk   ToolName = "binwalk"
	ToolFFprobe   ToolName = "ffprobe"
	ToolMediainfo ToolName = "mediainfo"
	ToolReadelf   ToolName = "readelf"
	ToolObjdump   ToolName = "objdump"
	ToolRabin2    ToolName = "rabin2"
	ToolPdfinfo   ToolName = "pdfinfo"
	ToolPdfimages ToolName = "pdfimages"
	ToolDocx2txt  ToolName = "docx2txt"
	ToolQpdf      ToolName = "qpdf"
	ToolMutool    ToolName = "mutool"
	ToolTshark    ToolName = "tshark"
	ToolFile      ToolName = "file"
)

var defaultCommands = map[ToolName][]string{
	// image / umum
	ToolExiftool: {"exiftool", FilePlaceholder},
	ToolExiv2:    {"exiv2", FilePlaceholder},
	ToolIdentify: {"identify", "-verbose", FilePlaceholder},
	ToolMat2:     {"mat2", FilePlaceholder},
	ToolStrings:  {"strings", "-a", FilePlaceholder},
	ToolBinwalk:  {"binwalk", FilePlaceholder},

	// video / audio
	ToolFFprobe:   {"ffprobe", "-v", "error", "-show_format", "-show_streams", "-print_format", "json", FilePlaceholder},
	ToolMediainfo: {"mediainfo", FilePlaceholder},

	// binary / firmware
	ToolReadelf: {"readelf", "-h", FilePlaceholder},
	ToolObjdump: {"objdump", "-f", FilePlaceholder},
	ToolRabin2:  {"rabin2", "-I", FilePlaceholder},

	// dokumen
	ToolPdfinfo:   {"pdfinfo", FilePlaceholder},
	ToolPdfimages: {"pdfimages", "-list", FilePlaceholder},
	ToolDocx2txt:  {"docx2txt", FilePlaceholder, "-"},
	ToolQpdf:      {"qpdf", "--show-encryption", FilePlaceholder},
	ToolMutool:    {"mutool", "info", FilePlaceholder},

	// network capture
	ToolTshark: {"tshark", "-r", FilePlaceholder},

	ToolFile: {"file", "-k", FilePlaceholder},
}

// DefaultSelection dipakai kalau user tidak memilih tool sama sekali
var DefaultSelection = []ToolName{ToolFile, ToolStrings, ToolExiftool}

// InformationalTools are listed in the catalog but never executed: they
// need root, a GUI or packaging we do not ship.
var InformationalTools = []string{
	"autopsy", "sleuthkit", "blkid", "lsblk", "dumpe2fs", "mmls", "fsstat", "istat",
	"tcpdump (root)", "pdftk (may require extra packages)", "metadata-cleaner (GUI)", "exiftool-gui",
}

// ToolGroup is one catalog section. Groups overlap (strings appears twice).
type ToolGroup struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Tools []ToolName `json:"tools"`
}

var toolGroups = []ToolGroup{
	{Key: "image", Label: "Image / general", Tools: []ToolName{ToolExiftool, ToolExiv2, ToolIdentify, ToolMat2, ToolStrings, ToolBinwalk}},
	{Key: "video", Label: "Audio / video", Tools: []ToolName{ToolFFprobe, ToolMediainfo}},
	{Key: "binary", Label: "Binary / firmware", Tools: []ToolName{ToolReadelf, ToolObjdump, ToolRabin2, ToolStrings, ToolFile}},
	{Key: "document", Label: "Documents", Tools: []ToolName{ToolPdfinfo, ToolPdfimages, ToolDocx2txt, ToolQpdf, ToolMutool}},
	{Key: "network", Label: "Network capture", Tools: []ToolName{ToolTshark}},
}

// Registry maps tool names to argv templates. It is read-only once built,
// so a single instance can be shared between requests.
type Registry struct {
	commands map[ToolName][]string
}

// NewRegistry copies the given templates. Every template must be non-empty
// and contain FilePlaceholder.
func NewRegistry(commands map[ToolName][]string) (*Registry, error) {
	r := &Registry{commands: make(map[ToolName][]string, len(commands))}
	for name, tmpl := range commands {
		if strings.TrimSpace(string(name)) == "" {
			return nil, fmt.Errorf("registry: empty tool name")
		}
		if len(tmpl) == 0 {
			return nil, fmt.Errorf("registry: tool %q has an empty command", name)
		}
		if !hasPlaceholder(tmpl) {
			return nil, fmt.Errorf("registry: tool %q has no %s placeholder", name, FilePlaceholder)
		}
		r.commands[name] = append([]string(nil), tmpl...)
	}
	return r, nil
}

// DefaultRegistry returns the built-in tool table, optionally extended by
// extra templates (from config). Built-in tools cannot be redefined: the
// scorer reads their output by name.
func DefaultRegistry(extra map[ToolName][]string) (*Registry, error) {
	merged := make(map[ToolName][]string, len(defaultCommands)+len(extra))
	for k, v := range defaultCommands {
		merged[k] = v
	}
	for k, v := range extra {
		if _, builtin := defaultCommands[k]; builtin {
			return nil, fmt.Errorf("registry: tool %q is built in and cannot be redefined", k)
		}
		merged[k] = v
	}
	return NewRegistry(merged)
}

func hasPlaceholder(tmpl []string) bool {
	for _, tok := range tmpl {
		if strings.Contains(tok, FilePlaceholder) {
			return true
		}
	}
	return false
}

// Has reports whether name is configured.
func (r *Registry) Has(name ToolName) bool {
	_, ok := r.commands[name]
	return ok
}

// Command builds the argv for name with path substituted verbatim, once per
// token. No escaping happens because the argv never reaches a shell.
func (r *Registry) Command(name ToolName, path string) ([]string, bool) {
	tmpl, ok := r.commands[name]
	if !ok {
		return nil, false
	}
	argv := make([]string, len(tmpl))
	for i, tok := range tmpl {
		argv[i] = strings.Replace(tok, FilePlaceholder, path, 1)
	}
	return argv, true
}

// Names returns configured tools sorted by name.
func (r *Registry) Names() []ToolName {
	out := make([]ToolName, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Catalog returns the purpose groups. Tools added through config that are
// not part of any built-in group land in an "other" group.
func (r *Registry) Catalog() []ToolGroup {
	grouped := make(map[ToolName]bool)
	out := make([]ToolGroup, 0, len(toolGroups)+1)
	for _, g := range toolGroups {
		tools := make([]ToolName, 0, len(g.Tools))
		for _, t := range g.Tools {
			grouped[t] = true
			if r.Has(t) {
				tools = append(tools, t)
			}
		}
		out = append(out, ToolGroup{Key: g.Key, Label: g.Label, Tools: tools})
	}

	var rest []ToolName
	for _, name := range r.Names() {
		if !grouped[name] {
			rest = append(rest, name)
		}
	}
	if len(rest) > 0 {
		out = append(out, ToolGroup{Key: "other", Label: "Other", Tools: rest})
	}
	return out
}
