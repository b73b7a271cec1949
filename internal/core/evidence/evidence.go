// Package evidence extracts the match signals the coverage classifier scores:
// regulation citations, parent-document mentions, obligation word overlap,
// timeframes, defined terms, plus windowed excerpt candidates
package evidence

import (
	"strings"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/excerpt"
	"github.com/valdezm/policy-auditor/internal/core/normalize"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

// Policy is a candidate compliance artifact. Text is folded once at
// construction and shared across every requirement unit scan
type Policy struct {
	Code  string
	Title string
	Text  normalize.Shadow
}

// NewPolicy builds a scannable policy from stored document text
func NewPolicy(code, title, text string) Policy {
	return Policy{Code: code, Title: title, Text: normalize.NewShadow(text)}
}

// ObligationHit records one obligation sentence counted as covered
type ObligationHit struct {
	Obligation string  // leading snippet of the sentence
	Coverage   float64 // significant-word overlap ratio
}

// Bundle carries every signal extracted for one (unit, policy) pair.
// All fields derive purely from the pair; no randomness, no I/O
type Bundle struct {
	UnitID      string
	PolicyCode  string
	PolicyTitle string

	// NoText marks a policy with no extracted text. Not an error state:
	// it is evidence of no coverage
	NoText bool

	RegulationMatches []string
	PrimaryReference  bool
	Obligations       []ObligationHit
	TimeframeMatches  []string
	DefinitionMatches []string
	ConceptMatches    []string
	CrossrefMatches   []string // bare codes of other requirement documents mentioned

	Topic string

	// Candidates are raw excerpt windows; excerpt.Rank bounds and orders them
	Candidates []excerpt.Excerpt

	// Requirement-side totals the classifier scores fractions against
	TotalReferences  int
	TotalObligations int
	TotalTimeframes  int
	TotalDefinitions int
}

// Extractor computes evidence bundles using the pack's tables.
// Stateless beyond those tables; safe for concurrent use
type Extractor struct {
	p *rulepack.Pack
}

// New returns an Extractor over the given pack
func New(p *rulepack.Pack) *Extractor {
	if p == nil {
		panic("evidence: nil rulepack")
	}
	return &Extractor{p: p}
}

// AssessUnit is Assess with a one-shot probe, for callers checking a
// single pair
func (x *Extractor) AssessUnit(u decompose.Unit, pol Policy) Bundle {
	return x.Assess(x.Prepare(u), pol)
}

// Assess extracts all signals for one (unit, policy) pair
func (x *Extractor) Assess(pr *Probe, pol Policy) Bundle {
	b := Bundle{
		UnitID:      pr.Unit.ID,
		PolicyCode:  pol.Code,
		PolicyTitle: pol.Title,
		Topic:       pr.topic,

		TotalReferences:  len(pr.Unit.References),
		TotalObligations: len(pr.Unit.Obligations),
		TotalTimeframes:  len(pr.Unit.Timeframes),
		TotalDefinitions: len(pr.Unit.Definitions),
	}
	if pol.Text.Empty() {
		b.NoText = true
		return b
	}

	folded := pol.Text.Folded

	for _, r := range pr.refs {
		if strings.Contains(folded, r.folded) {
			b.RegulationMatches = append(b.RegulationMatches, r.text)
		}
	}

	b.PrimaryReference = pr.primary != "" && strings.Contains(folded, pr.primary)

	for _, o := range pr.obligations {
		hits := 0
		for _, w := range o.words {
			if strings.Contains(folded, w) {
				hits++
			}
		}
		ratio := float64(hits) / float64(len(o.words))
		if ratio >= x.p.Thresholds.WordOverlap {
			b.Obligations = append(b.Obligations, ObligationHit{
				Obligation: snippet(o.text, x.p.Caps.ObligationSnippet),
				Coverage:   ratio,
			})
		}
	}

	for i, tf := range pr.timeframes {
		if strings.Contains(folded, tf) {
			b.TimeframeMatches = append(b.TimeframeMatches, pr.Unit.Timeframes[i])
		}
	}

	for i, term := range pr.termsFolded {
		if strings.Contains(folded, term) {
			b.DefinitionMatches = append(b.DefinitionMatches, pr.terms[i])
		}
	}

	for _, kw := range pr.concepts {
		if strings.Contains(folded, kw) {
			b.ConceptMatches = append(b.ConceptMatches, kw)
		}
	}

	for _, c := range pr.crossrefs {
		if strings.Contains(folded, c.folded) {
			b.CrossrefMatches = append(b.CrossrefMatches, c.code)
		}
	}

	b.Candidates = x.collectExcerpts(pr, pol)

	return b
}

// snippet bounds a string to max bytes without splitting a UTF-8 sequence
func snippet(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
