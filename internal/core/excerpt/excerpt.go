// Package excerpt ranks and deduplicates candidate evidence windows
// surfaced by the evidence extractor
package excerpt

import "sort"

// Excerpt is a bounded text window from a policy surfaced as supporting
// evidence. Start/End are byte offsets [Start,End) into that policy's
// stored text; spans from different policies are never compared
type Excerpt struct {
	PolicyCode  string
	PolicyTitle string
	MatchedText string
	Start       int
	End         int
	Context     string
	Relevance   float64 // in [0,1]
	// MatchedElements identifies the evidence rules that produced the window
	MatchedElements []string
	// SurroundingKeywords lists topic vocabulary co-occurring in the window
	// (domain pass only)
	SurroundingKeywords []string
}

// Rank removes overlapping same-policy spans keeping the higher-relevance
// excerpt, then orders survivors by relevance descending and bounds the
// result to limit entries
func Rank(cands []Excerpt, limit int) []Excerpt {
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]Excerpt, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Relevance > sorted[j].Relevance
	})

	var kept []Excerpt
	for _, cand := range sorted {
		// Collect kept excerpts this candidate overlaps within its policy
		overlap := kept[:0:0]
		rest := kept[:0:0]
		bestRel := -1.0
		for _, k := range kept {
			if k.PolicyCode == cand.PolicyCode && cand.Start < k.End && cand.End > k.Start {
				overlap = append(overlap, k)
				if k.Relevance > bestRel {
					bestRel = k.Relevance
				}
			} else {
				rest = append(rest, k)
			}
		}
		switch {
		case len(overlap) == 0:
			kept = append(kept, cand)
		case cand.Relevance > bestRel:
			// Strictly better than everything it overlaps: displace them all
			kept = append(rest, cand)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Relevance > kept[j].Relevance
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
