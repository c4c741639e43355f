package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// maxRenameAttempts guards the suffix loop against a pathological directory.
const maxRenameAttempts = 10000

// Dir is the upload directory. It stores uploaded files and the JSON
// reports written next to them.
type Dir struct {
	root string
}

// NewDir pastikan folder upload ada
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Save writes content as name, or name_1.ext, name_2.ext... when the name is
// taken. The exclusive create makes the final name safe even when two
// uploads race for it.
func (d *Dir) Save(name string, content io.Reader) (string, string, error) {
	base := BaseName(name)
	if base == "" {
		return "", "", domain.ErrEmptyFilename
	}
	stem, ext := splitExt(base)

	candidate := base
	for i := 1; i <= maxRenameAttempts; i++ {
		path := filepath.Join(d.root, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
			continue
		}
		if err != nil {
			return "", "", err
		}
		if _, err := io.Copy(f, content); err != nil {
			f.Close()
			os.Remove(path)
			return "", "", err
		}
		if err := f.Close(); err != nil {
			return "", "", err
		}
		return path, candidate, nil
	}
	return "", "", fmt.Errorf("no free name for %s after %d attempts", base, maxRenameAttempts)
}

// Write simpan dokumen laporan sebagai JSON (indent 2), menimpa versi lama
func (d *Dir) Write(name string, doc domain.Document) (string, error) {
	if BaseName(name) != name {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Open only serves plain file names that live directly in the directory.
func (d *Dir) Open(name string) (io.ReadCloser, error) {
	if name == "" || BaseName(name) != name {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err != nil || st.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// BaseName strips any client supplied directory part, both / and \ style.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// splitExt mirrors the usual "stem + .ext" split; a leading dot alone is
// part of the stem (".bashrc" has no extension).
func splitExt(base string) (string, string) {
	ext := filepath.Ext(base)
	if ext == base {
		return base, ""
	}
	return strings.TrimSuffix(base, ext), ext
}
