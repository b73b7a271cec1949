// Package decompose turns regulatory requirement documents into atomic,
// checkable requirement units with their embedded references, obligations,
// timeframes and definitions
package decompose

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

// Unit is one checkable obligation extracted from a requirement document.
// Immutable once extracted; downstream stages never mutate it
type Unit struct {
	ID           string
	ParentCode   string // owning document code, e.g. "APL 23-001"
	SectionLabel string
	Text         string

	References  []string          // normalized "FAMILY <number>", deduped, sorted
	Obligations []string          // document order, capped
	Timeframes  []string          // deduped, sorted
	Definitions map[string]string // defined term -> definition text
}

// Criterion is a pre-segmented requirement row supplied by the caller
// (typically parsed from a review-tool checklist)
type Criterion struct {
	ID   string
	Code string // section/question label, may be empty
	Text string
}

// Decomposer extracts units using the pack's citation families and vocabularies.
// Stateless beyond the fixed tables; safe for concurrent use
type Decomposer struct {
	p *rulepack.Pack
}

// New returns a Decomposer over the given pack
func New(p *rulepack.Pack) *Decomposer {
	if p == nil {
		panic("decompose: nil rulepack")
	}
	return &Decomposer{p: p}
}

// Decompose emits units for a raw document body. Documents without
// pre-segmented criteria yield a single synthetic "Main" unit over the
// truncated body. Empty input yields zero units
func (d *Decomposer) Decompose(text, parentCode string) []Unit {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	body := truncate(text, d.p.Caps.UnitText)
	return []Unit{d.build(fmt.Sprintf("%s#Main", parentCode), parentCode, "Main", body)}
}

// DecomposeCriteria emits one unit per criterion, preserving input order.
// Criteria with empty text are skipped
func (d *Decomposer) DecomposeCriteria(criteria []Criterion, parentCode string) []Unit {
	units := make([]Unit, 0, len(criteria))
	for i, c := range criteria {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		label := c.Code
		if label == "" {
			label = fmt.Sprintf("Section_%d", i+1)
		}
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("%s#%s", parentCode, label)
		}
		units = append(units, d.build(id, parentCode, label, truncate(c.Text, d.p.Caps.UnitText)))
	}
	return units
}

func (d *Decomposer) build(id, parentCode, label, text string) Unit {
	return Unit{
		ID:           id,
		ParentCode:   parentCode,
		SectionLabel: label,
		Text:         text,
		References:   d.ExtractReferences(text),
		Obligations:  d.ExtractObligations(text),
		Timeframes:   d.ExtractTimeframes(text),
		Definitions:  d.ExtractDefinitions(text),
	}
}

// ExtractReferences collects citation matches across every family,
// normalized to "FAMILY <number>" strings, deduped and sorted
func (d *Decomposer) ExtractReferences(text string) []string {
	seen := make(map[string]struct{})
	for i, c := range d.p.Citations {
		for _, m := range d.p.CitationRes[i].FindAllStringSubmatch(text, -1) {
			if len(m) > 1 && m[1] != "" {
				seen[c.Family+" "+m[1]] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// ExtractObligations keeps sentences that carry an obligation keyword and
// fall within the configured length bounds, capped in document order
func (d *Decomposer) ExtractObligations(text string) []string {
	var out []string
	for _, sentence := range strings.Split(text, ".") {
		lower := strings.ToLower(sentence)
		hit := false
		for _, kw := range d.p.ObligationKeywords {
			if strings.Contains(lower, kw) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		clean := strings.TrimSpace(sentence)
		if len(clean) > d.p.Caps.MinObligationLen && len(clean) < d.p.Caps.MaxObligationLen {
			out = append(out, clean)
			if len(out) >= d.p.Caps.Obligations {
				break
			}
		}
	}
	return out
}

// ExtractTimeframes collects numeric time expressions, deduped and sorted
func (d *Decomposer) ExtractTimeframes(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range d.p.Timeframe.FindAllString(text, -1) {
		seen[m] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for tf := range seen {
		out = append(out, tf)
	}
	sort.Strings(out)
	return out
}

// ExtractDefinitions collects term/definition pairs from the pack's clause
// patterns. Later patterns overwrite earlier captures of the same term
func (d *Decomposer) ExtractDefinitions(text string) map[string]string {
	defs := make(map[string]string)
	for _, re := range d.p.Definitions {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 3 {
				continue
			}
			term := strings.TrimSpace(m[1])
			def := strings.TrimSpace(m[2])
			if len(term) < d.p.Caps.MaxTermLen && len(def) < d.p.Caps.MaxDefinitionLen {
				defs[term] = def
			}
		}
	}
	return defs
}

// truncate bounds s to max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
