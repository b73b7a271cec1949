// Package normalize provides deterministic text preparation for the coverage engine
// Clean runs once at ingestion time before document text is stored
// Fold builds the byte-stable lowercase shadow the matchers scan
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
		)
	},
}

// Clean prepares extracted document text for storage:
// 1 drop NUL, stray controls and invalid UTF-8
// 2 Unicode NFKC normalization
// 3 strip zero-width/format characters
// 4 collapse whitespace runs, preserving line breaks
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = sanitize(s)
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return collapseSpaces(ns)
}

// Fold lowercases ASCII letters in place, leaving every other byte untouched.
// len(Fold(s)) == len(s) always, so offsets found in the folded form index the
// original text directly. Citation and keyword tables are ASCII, which is all
// the matchers need
func Fold(s string) string {
	i := 0
	for ; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			break
		}
	}
	if i == len(s) {
		return s
	}
	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// Shadow bundles a document's stored text with its folded projection.
// Built once per policy and shared across every requirement unit scan
type Shadow struct {
	Raw    string
	Folded string
}

// NewShadow folds s once. Empty text yields an empty shadow, a valid state
// meaning no evidence is possible
func NewShadow(s string) Shadow {
	return Shadow{Raw: s, Folded: Fold(s)}
}

// Empty reports whether the shadow carries no scannable text
func (sh Shadow) Empty() bool { return sh.Raw == "" }

// sanitize removes NUL, ASCII controls except \n \r \t, DEL, C1 controls and
// invalid UTF-8 bytes. Returns s unchanged when nothing needs cleaning
func sanitize(s string) string {
	n := len(s)
	i := 0
	for i < n {
		b := s[i]
		if b < 0x20 {
			if b == '\n' || b == '\r' || b == '\t' {
				i++
				continue
			}
			break
		}
		if b == 0x7F {
			break
		}
		if b < 0x80 {
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			break
		}
		if r >= 0x80 && r <= 0x9F {
			break
		}
		i += size
	}
	if i == n {
		return s
	}

	var bldr strings.Builder
	bldr.Grow(n)
	bldr.WriteString(s[:i])

	for i < n {
		c := s[i]
		if c < 0x20 {
			if c == '\n' || c == '\r' || c == '\t' {
				bldr.WriteByte(c)
			}
			i++
			continue
		}
		if c == 0x7F {
			i++
			continue
		}
		if c < 0x80 {
			bldr.WriteByte(c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r >= 0x80 && r <= 0x9F {
			i += size
			continue
		}
		bldr.WriteString(s[i : i+size])
		i += size
	}
	return bldr.String()
}

// collapseSpaces converts whitespace runs to a single ASCII space, but preserves line breaks.
// Runs that contain any newline collapse to a single newline. Leading/trailing whitespace is trimmed
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	sawNL := false
	flush := func() {
		if !inWS {
			return
		}
		if sawNL {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inWS = false
		sawNL = false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " \n")
}
