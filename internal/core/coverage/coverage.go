// Package coverage maps an evidence bundle to a typed coverage verdict with
// a weighted confidence score and a human-readable gap list
package coverage

import (
	"fmt"
	"strings"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/evidence"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

// Type classifies how well a policy addresses a requirement unit.
// Values are ordered by strength; Better compares them
type Type int

// Coverage verdicts, weakest first
const (
	NoCoverage Type = iota
	ManualReview
	Related
	ReferenceOnly
	PartialCompliance
	FullCompliance
)

var typeNames = map[Type]string{
	NoCoverage:        "no_coverage",
	ManualReview:      "manual_review",
	Related:           "related",
	ReferenceOnly:     "reference_only",
	PartialCompliance: "partial_compliance",
	FullCompliance:    "full_compliance",
}

// String returns the wire form of the verdict
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "no_coverage"
}

// MarshalText serializes the verdict for JSON payloads
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a wire-form verdict
func (t *Type) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = p
	return nil
}

// Parse maps a wire-form verdict back to its Type
func Parse(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return NoCoverage, fmt.Errorf("coverage: unknown type %q", s)
}

// Better reports whether a is a strictly stronger verdict than b.
// Never true for equal verdicts, so best-of reduction keeps the first seen
func Better(a, b Type) bool { return a > b }

// Result is the classifier's verdict for one (unit, policy) pair
type Result struct {
	Type       Type
	Confidence float64 // in [0,1]
	Gaps       []string
	// NeedsReview marks verdicts too ambiguous to stand without a human
	NeedsReview bool
}

// Classifier applies the pack's ordered decision rules and scoring weights.
// Stateless beyond those tables; safe for concurrent use
type Classifier struct {
	p *rulepack.Pack
}

// New returns a Classifier over the given pack
func New(p *rulepack.Pack) *Classifier {
	if p == nil {
		panic("coverage: nil rulepack")
	}
	return &Classifier{p: p}
}

// Classify produces the verdict for one evidence bundle. Pure: identical
// inputs always yield identical results
func (c *Classifier) Classify(b evidence.Bundle, u decompose.Unit) Result {
	if b.NoText {
		return Result{
			Type:       NoCoverage,
			Confidence: 0,
			Gaps:       []string{"policy has no extracted text"},
		}
	}

	t := c.decide(b)
	conf := c.confidence(b)

	return Result{
		Type:        t,
		Confidence:  conf,
		Gaps:        c.gaps(b, u),
		NeedsReview: c.needsReview(t, conf),
	}
}

// decide evaluates the ordered rules; the first satisfied wins.
// Shares are computed against the unit's totals with no zero guard: a unit
// that extracted no obligations trivially satisfies the share comparisons,
// which biases thin units toward reviewable verdicts rather than silence
func (c *Classifier) decide(b evidence.Bundle) Type {
	th := c.p.Thresholds
	covered := float64(len(b.Obligations))
	total := float64(b.TotalObligations)
	regHit := len(b.RegulationMatches) > 0
	tfHit := len(b.TimeframeMatches) > 0

	switch {
	case regHit && covered >= total*th.FullObligationShare && (b.TotalTimeframes == 0 || tfHit):
		return FullCompliance
	case (regHit || b.PrimaryReference) && covered < total*th.PartialObligationShare:
		return ReferenceOnly
	case covered >= total*th.PartialObligationShare:
		return PartialCompliance
	case covered > 0 || tfHit:
		return Related
	}
	return NoCoverage
}

// confidence is the weighted sum of matched fractions per category. Categories
// the unit never required contribute nothing and their weight stays
// unreachable, so thin units cap below 1.0. That asymmetry is intentional and
// kept from the field-tuned model; see the pack's weights table
func (c *Classifier) confidence(b evidence.Bundle) float64 {
	w := c.p.Weights
	score := 0.0

	if b.TotalReferences > 0 {
		score += float64(len(b.RegulationMatches)) / float64(b.TotalReferences) * w.Regulation
	}
	if b.PrimaryReference {
		score += w.PrimaryReference
	}
	if b.TotalObligations > 0 {
		score += float64(len(b.Obligations)) / float64(b.TotalObligations) * w.Obligations
	}
	if b.TotalTimeframes > 0 {
		score += float64(len(b.TimeframeMatches)) / float64(b.TotalTimeframes) * w.Timeframes
	}
	if b.TotalDefinitions > 0 {
		score += float64(len(b.DefinitionMatches)) / float64(b.TotalDefinitions) * w.Definitions
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// gaps enumerates required-but-unmatched elements per category
func (c *Classifier) gaps(b evidence.Bundle, u decompose.Unit) []string {
	var gaps []string
	if len(u.References) > 0 && len(b.RegulationMatches) == 0 {
		gaps = append(gaps, "missing regulation references: "+strings.Join(u.References, ", "))
	}
	if len(u.Obligations) > 0 && len(b.Obligations) == 0 {
		gaps = append(gaps, "key obligations not addressed")
	}
	if len(u.Timeframes) > 0 && len(b.TimeframeMatches) == 0 {
		gaps = append(gaps, "missing timeframes: "+strings.Join(u.Timeframes, ", "))
	}
	return gaps
}

func (c *Classifier) needsReview(t Type, conf float64) bool {
	return t == PartialCompliance ||
		t == ReferenceOnly ||
		(t == Related && conf > c.p.Thresholds.RelatedReviewConf)
}
