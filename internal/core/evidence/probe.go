package evidence

import (
	"regexp"
	"sort"
	"strings"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

// Probe is a requirement unit compiled for repeated scanning. Built once per
// unit and reused across the whole policy corpus, so per-pair work stays
// substring checks and precompiled regexp runs
type Probe struct {
	Unit decompose.Unit

	refs        []refProbe
	primary     string // folded parent code, leading label word stripped
	obligations []obligationProbe
	timeframes  []string
	terms       []string // defined terms, sorted
	termsFolded []string

	topic      string
	topicWords []string // the matched group's full vocabulary
	concepts   []string // group keywords present in the unit text itself

	crossrefs []crossrefProbe
}

// Topic names the vocabulary group detected for the unit, "" when none matched
func (pr *Probe) Topic() string { return pr.topic }

type refProbe struct {
	text   string // normalized reference, e.g. "WIC 14197.7"
	folded string
	re     *regexp.Regexp // whitespace-flexible form for excerpt capture
}

type obligationProbe struct {
	text  string
	words []string // significant words, folded
}

type crossrefProbe struct {
	code   string // bare code, e.g. "22-031"
	folded string
	forms  []*regexp.Regexp
}

// Prepare compiles a unit into a Probe
func (x *Extractor) Prepare(u decompose.Unit) *Probe {
	pr := &Probe{Unit: u}

	for _, ref := range u.References {
		pr.refs = append(pr.refs, refProbe{
			text:   ref,
			folded: strings.ToLower(ref),
			re:     flexibleRef(ref),
		})
	}

	pr.primary = strings.ToLower(stripLabel(u.ParentCode))

	for _, obl := range u.Obligations {
		words := x.significantWords(obl)
		if len(words) == 0 {
			continue
		}
		pr.obligations = append(pr.obligations, obligationProbe{text: obl, words: words})
	}

	for _, tf := range u.Timeframes {
		pr.timeframes = append(pr.timeframes, strings.ToLower(tf))
	}

	for term := range u.Definitions {
		pr.terms = append(pr.terms, term)
	}
	sort.Strings(pr.terms)
	for _, term := range pr.terms {
		pr.termsFolded = append(pr.termsFolded, strings.ToLower(term))
	}

	unitFolded := strings.ToLower(u.Text)
	for _, g := range x.p.Groups {
		hit := false
		for _, kw := range g.Keywords {
			if strings.Contains(unitFolded, kw) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		pr.topic = g.Name
		pr.topicWords = g.Keywords
		for _, kw := range g.Keywords {
			if strings.Contains(unitFolded, kw) {
				pr.concepts = append(pr.concepts, kw)
			}
		}
		break
	}

	pr.crossrefs = x.crossrefProbes(u)

	return pr
}

// crossrefProbes collects other-document codes cited by the unit, excluding
// the unit's own parent code, each with its compiled surface forms
func (x *Extractor) crossrefProbes(u decompose.Unit) []crossrefProbe {
	seen := make(map[string]struct{})
	var codes []string
	for _, re := range x.p.CrossrefDetect {
		for _, m := range re.FindAllStringSubmatch(u.Text, -1) {
			code := strings.TrimSpace(m[1])
			if code == "" || strings.EqualFold(code, stripLabel(u.ParentCode)) {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	probes := make([]crossrefProbe, 0, len(codes))
	for _, code := range codes {
		cp := crossrefProbe{code: code, folded: strings.ToLower(code)}
		for _, form := range x.p.CrossrefForms {
			re, err := rulepack.ExpandForm(form, code)
			if err != nil {
				continue
			}
			cp.forms = append(cp.forms, re)
		}
		probes = append(probes, cp)
	}
	return probes
}

// significantWords tokenizes an obligation sentence to the words that count
// toward coverage: longer than the pack's minimum, not in the stopword set
func (x *Extractor) significantWords(obligation string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(obligation)) {
		if len(w) <= x.p.Caps.MinWordLen {
			continue
		}
		if _, stop := x.p.Stopset[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// stripLabel drops a leading alphabetic label word from a document code,
// so "APL 23-001" becomes "23-001" for mention checks
func stripLabel(code string) string {
	fields := strings.Fields(code)
	if len(fields) < 2 {
		return strings.TrimSpace(code)
	}
	for _, r := range fields[0] {
		if !isAlpha(r) {
			return strings.TrimSpace(code)
		}
	}
	return strings.Join(fields[1:], " ")
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// flexibleRef compiles a citation string into a case-insensitive pattern
// tolerant of whitespace runs between its tokens
func flexibleRef(ref string) *regexp.Regexp {
	pat := strings.ReplaceAll(regexp.QuoteMeta(ref), " ", `\s+`)
	re, err := regexp.Compile("(?i)" + pat)
	if err != nil {
		return nil
	}
	return re
}
