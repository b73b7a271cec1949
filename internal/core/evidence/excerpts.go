package evidence

import (
	"strings"

	"github.com/valdezm/policy-auditor/internal/core/excerpt"
)

// collectExcerpts runs the four windowed passes in a fixed order. The passes
// are independent; overlapping candidates are resolved later by excerpt.Rank
func (x *Extractor) collectExcerpts(pr *Probe, pol Policy) []excerpt.Excerpt {
	var cands []excerpt.Excerpt
	cands = append(cands, x.domainExcerpts(pr, pol)...)
	cands = append(cands, x.citationExcerpts(pr, pol)...)
	cands = append(cands, x.crossrefExcerpts(pr, pol)...)
	cands = append(cands, x.conceptExcerpts(pr, pol)...)
	return cands
}

// domainExcerpts windows every topic-vocabulary occurrence and scores each
// window by how much of the vocabulary co-occurs inside it. Windows at or
// below the relevance floor are dropped
func (x *Extractor) domainExcerpts(pr *Probe, pol Policy) []excerpt.Excerpt {
	if pr.topic == "" {
		return nil
	}
	raw, folded := pol.Text.Raw, pol.Text.Folded
	win := x.p.Windows.Domain

	var out []excerpt.Excerpt
	for _, kw := range pr.topicWords {
		for _, pos := range indexAll(folded, kw) {
			cs := max(0, pos-win)
			ce := min(len(raw), pos+win)
			ctxFolded := folded[cs:ce]

			rel := groupShare(ctxFolded, pr.topicWords)
			if rel <= x.p.Thresholds.RelevanceFloor {
				continue
			}
			out = append(out, excerpt.Excerpt{
				PolicyCode:          pol.Code,
				PolicyTitle:         pol.Title,
				MatchedText:         kw,
				Start:               pos,
				End:                 pos + len(kw),
				Context:             raw[cs:ce],
				Relevance:           rel,
				MatchedElements:     []string{kw},
				SurroundingKeywords: presentKeywords(ctxFolded, pr.topicWords),
			})
		}
	}
	return out
}

// citationExcerpts windows regulation citations, matched whitespace-flexibly
// against the raw text, at a fixed relevance
func (x *Extractor) citationExcerpts(pr *Probe, pol Policy) []excerpt.Excerpt {
	raw := pol.Text.Raw
	win := x.p.Windows.Citation

	var out []excerpt.Excerpt
	for _, r := range pr.refs {
		if r.re == nil {
			continue
		}
		for _, span := range r.re.FindAllStringIndex(raw, -1) {
			s, e := span[0], span[1]
			cs := max(0, s-win)
			ce := min(len(raw), e+win)
			out = append(out, excerpt.Excerpt{
				PolicyCode:      pol.Code,
				PolicyTitle:     pol.Title,
				MatchedText:     raw[s:e],
				Start:           s,
				End:             e,
				Context:         raw[cs:ce],
				Relevance:       x.p.Relevance.Citation,
				MatchedElements: []string{r.text},
			})
		}
	}
	return out
}

// crossrefExcerpts windows mentions of other requirement documents, trying
// each configured surface form per code
func (x *Extractor) crossrefExcerpts(pr *Probe, pol Policy) []excerpt.Excerpt {
	raw := pol.Text.Raw
	win := x.p.Windows.Crossref

	var out []excerpt.Excerpt
	for _, c := range pr.crossrefs {
		for _, re := range c.forms {
			for _, span := range re.FindAllStringIndex(raw, -1) {
				s, e := span[0], span[1]
				cs := max(0, s-win)
				ce := min(len(raw), e+win)
				out = append(out, excerpt.Excerpt{
					PolicyCode:      pol.Code,
					PolicyTitle:     pol.Title,
					MatchedText:     raw[s:e],
					Start:           s,
					End:             e,
					Context:         raw[cs:ce],
					Relevance:       x.p.Relevance.Crossref,
					MatchedElements: []string{"APL " + c.code},
				})
			}
		}
	}
	return out
}

// conceptExcerpts windows occurrences of the unit's own topic keywords at a
// fixed base relevance
func (x *Extractor) conceptExcerpts(pr *Probe, pol Policy) []excerpt.Excerpt {
	raw, folded := pol.Text.Raw, pol.Text.Folded
	win := x.p.Windows.Concept

	var out []excerpt.Excerpt
	for _, kw := range pr.concepts {
		for _, pos := range indexAll(folded, kw) {
			cs := max(0, pos-win)
			ce := min(len(raw), pos+win)
			out = append(out, excerpt.Excerpt{
				PolicyCode:      pol.Code,
				PolicyTitle:     pol.Title,
				MatchedText:     kw,
				Start:           pos,
				End:             pos + len(kw),
				Context:         raw[cs:ce],
				Relevance:       x.p.Relevance.Concept,
				MatchedElements: []string{kw},
			})
		}
	}
	return out
}

// indexAll returns every occurrence of sub in s, including overlapping ones
func indexAll(s, sub string) []int {
	if sub == "" {
		return nil
	}
	var at []int
	for start := 0; ; {
		i := strings.Index(s[start:], sub)
		if i < 0 {
			return at
		}
		pos := start + i
		at = append(at, pos)
		start = pos + 1
	}
}

// groupShare is the fraction of the vocabulary present in the window
func groupShare(ctxFolded string, vocab []string) float64 {
	if len(vocab) == 0 {
		return 0
	}
	hits := 0
	for _, kw := range vocab {
		if strings.Contains(ctxFolded, kw) {
			hits++
		}
	}
	share := float64(hits) / float64(len(vocab))
	if share > 1 {
		share = 1
	}
	return share
}

func presentKeywords(ctxFolded string, vocab []string) []string {
	var present []string
	for _, kw := range vocab {
		if strings.Contains(ctxFolded, kw) {
			present = append(present, kw)
		}
	}
	return present
}
