// Package corpus loads pre-extracted policy and requirement documents from
// the filesystem. PDF extraction happens upstream; this walker only consumes
// the resulting .txt/.md files
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/valdezm/policy-auditor/internal/platform/logger"
)

// File is one loaded corpus document
type File struct {
	// Code is derived from the filename stem, e.g. "MMCD-001" from
	// "MMCD-001_Network_Reporting.txt"
	Code string
	// Title comes from the filename remainder or a header sniff of the text
	Title string
	// Category is the first subdirectory under the corpus root, "" for files
	// at the root
	Category string
	Text     string
	// SHA256 is the hex digest of the raw file bytes, used by ingest to skip
	// unchanged files
	SHA256 string
	Path   string
}

// Stats counts one directory walk
type Stats struct {
	Total  int
	Loaded int
	Failed int
}

// Loader walks corpus directories
type Loader struct{}

// New constructs a Loader
func New() *Loader { return &Loader{} }

// Load walks root for .txt/.md files and returns them with derivation
// metadata. Unreadable files are logged, counted as failed and skipped; one
// bad file never aborts a walk
func (l *Loader) Load(root string) ([]File, Stats, error) {
	var (
		out   []File
		stats Stats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCorpusFile(path) {
			return nil
		}
		stats.Total++

		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Get().Warn().Err(err).Str("path", path).Msg("corpus: unreadable file skipped")
			stats.Failed++
			return nil
		}

		sum := sha256.Sum256(raw)
		code, title := deriveCodeTitle(path, string(raw))
		out = append(out, File{
			Code:     code,
			Title:    title,
			Category: categoryOf(root, path),
			Text:     string(raw),
			SHA256:   hex.EncodeToString(sum[:]),
			Path:     path,
		})
		stats.Loaded++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

func isCorpusFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// categoryOf returns the first path element between root and the file
func categoryOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}

// deriveCodeTitle splits "CODE_Some_Title.txt" into its parts. Files without
// an underscore use the whole stem as code and sniff the title from the first
// non-empty line of text, falling back to the stem
func deriveCodeTitle(path, text string) (string, string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.IndexByte(stem, '_'); i > 0 {
		code := strings.TrimSpace(stem[:i])
		title := strings.TrimSpace(strings.ReplaceAll(stem[i+1:], "_", " "))
		if title != "" {
			return code, title
		}
		return code, code
	}
	if title := sniffTitle(text, stem); title != "" {
		return stem, title
	}
	return stem, stem
}

// sniffTitle returns the first non-empty line that is not just the code
func sniffTitle(text, code string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, code) {
			continue
		}
		const maxTitle = 200
		if len(line) > maxTitle {
			line = line[:maxTitle]
		}
		return line
	}
	return ""
}
