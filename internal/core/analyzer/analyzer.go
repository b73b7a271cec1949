// Package analyzer runs the full coverage pipeline over a corpus: decompose
// every requirement document, score every (unit, policy) pair, keep the best
// verdict per unit and roll results up into per-document and corpus summaries
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/valdezm/policy-auditor/internal/core/coverage"
	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/evidence"
	"github.com/valdezm/policy-auditor/internal/core/excerpt"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
)

// Document is one requirement document to decompose and assess. Criteria,
// when present, are pre-segmented checklist rows; otherwise Text is
// decomposed as a single synthetic unit
type Document struct {
	Code     string
	Title    string
	Text     string
	Criteria []decompose.Criterion
}

// PolicyMatch records one policy that contributed non-NoCoverage evidence
// toward a unit
type PolicyMatch struct {
	PolicyCode  string
	PolicyTitle string
	Type        coverage.Type
	Confidence  float64
	Bundle      evidence.Bundle
}

// Assessment is the final per-unit verdict: the best-scoring policy's
// classification plus every contributing policy and the ranked evidence
type Assessment struct {
	Unit        decompose.Unit
	Type        coverage.Type
	Confidence  float64
	Gaps        []string
	NeedsReview bool

	// BestPolicy is the code of the policy behind the verdict, "" when no
	// policy contributed anything
	BestPolicy string
	Matches    []PolicyMatch
	Excerpts   []excerpt.Excerpt
}

// Summary counts verdicts for a slice of assessments
type Summary struct {
	Total             int
	FullCompliance    int
	PartialCompliance int
	ReferenceOnly     int
	Related           int
	NoCoverage        int
	NeedsReview       int
}

// CoveragePercent is the legacy two-tier rollup: full counts whole, partial
// counts half, everything else counts nothing
func (s Summary) CoveragePercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return (float64(s.FullCompliance) + 0.5*float64(s.PartialCompliance)) / float64(s.Total) * 100
}

func (s *Summary) add(a Assessment) {
	s.Total++
	switch a.Type {
	case coverage.FullCompliance:
		s.FullCompliance++
	case coverage.PartialCompliance:
		s.PartialCompliance++
	case coverage.ReferenceOnly:
		s.ReferenceOnly++
	case coverage.Related:
		s.Related++
	default:
		s.NoCoverage++
	}
	if a.NeedsReview {
		s.NeedsReview++
	}
}

// DocSummary is the rollup for one requirement document
type DocSummary struct {
	DocCode string
	Summary Summary
}

// Report is the corpus-wide result
type Report struct {
	Assessments []Assessment
	Summary     Summary
	// ByDoc is sorted by document code for stable output
	ByDoc []DocSummary
}

// Options tune a corpus run
type Options struct {
	// Workers bounds unit-level fan-out; values below 1 run sequentially
	Workers int
}

// Analyzer wires the pipeline stages. Stateless beyond the pack's tables;
// one instance serves every run
type Analyzer struct {
	pack *rulepack.Pack
	dec  *decompose.Decomposer
	ext  *evidence.Extractor
	cls  *coverage.Classifier
}

// New builds an Analyzer over the given pack
func New(p *rulepack.Pack) *Analyzer {
	if p == nil {
		panic("analyzer: nil rulepack")
	}
	return &Analyzer{
		pack: p,
		dec:  decompose.New(p),
		ext:  evidence.New(p),
		cls:  coverage.New(p),
	}
}

// AnalyzeCorpus assesses every requirement unit in docs against every policy.
// Unit evaluations are independent and fan out over a bounded worker pool;
// each worker scans the whole policy corpus for its unit, so the per-unit
// best-of reduction needs no cross-worker state. Results land in per-index
// slots and merge after the barrier, deterministically
func (a *Analyzer) AnalyzeCorpus(ctx context.Context, docs []Document, policies []evidence.Policy, opts Options) (Report, error) {
	return a.AnalyzeUnits(ctx, a.decomposeAll(docs), policies, opts)
}

// AnalyzeUnits is AnalyzeCorpus for callers that already hold decomposed
// units, e.g. when units are persisted and re-scored against a fresh corpus
func (a *Analyzer) AnalyzeUnits(ctx context.Context, units []decompose.Unit, policies []evidence.Policy, opts Options) (Report, error) {
	if len(units) == 0 {
		return Report{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	out := make([]Assessment, len(units))
	sem := make(chan struct{}, workers)
	wg := sync.WaitGroup{}

	for i := range units {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return Report{}, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			out[i] = a.assessUnit(units[i], policies)
		}(i)
	}
	wg.Wait()

	rep := Report{Assessments: out}
	byDoc := make(map[string]*Summary)
	for _, as := range out {
		rep.Summary.add(as)
		ds, ok := byDoc[as.Unit.ParentCode]
		if !ok {
			ds = &Summary{}
			byDoc[as.Unit.ParentCode] = ds
		}
		ds.add(as)
	}
	codes := make([]string, 0, len(byDoc))
	for code := range byDoc {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		rep.ByDoc = append(rep.ByDoc, DocSummary{DocCode: code, Summary: *byDoc[code]})
	}
	return rep, nil
}

// AssessUnit scores one unit against the whole policy corpus: best verdict
// wins, every non-NoCoverage contributor is retained, and the contributors'
// excerpt candidates are ranked into the bounded evidence list
func (a *Analyzer) AssessUnit(u decompose.Unit, policies []evidence.Policy) Assessment {
	return a.assessUnit(u, policies)
}

func (a *Analyzer) assessUnit(u decompose.Unit, policies []evidence.Policy) Assessment {
	pr := a.ext.Prepare(u)

	var (
		best     *coverage.Result
		bestCode string
		matches  []PolicyMatch
		cands    []excerpt.Excerpt
	)

	for _, pol := range policies {
		b := a.ext.Assess(pr, pol)
		res := a.cls.Classify(b, u)
		if res.Type == coverage.NoCoverage {
			continue
		}

		matches = append(matches, PolicyMatch{
			PolicyCode:  pol.Code,
			PolicyTitle: pol.Title,
			Type:        res.Type,
			Confidence:  res.Confidence,
			Bundle:      b,
		})
		cands = append(cands, b.Candidates...)

		if best == nil || betterResult(res, *best) {
			r := res
			best, bestCode = &r, pol.Code
		}
	}

	if best == nil {
		// Nothing in the corpus touches this unit; surface it for a human
		return Assessment{
			Unit:        u,
			Type:        coverage.NoCoverage,
			Confidence:  0,
			Gaps:        []string{"no matching policies found"},
			NeedsReview: true,
		}
	}

	return Assessment{
		Unit:        u,
		Type:        best.Type,
		Confidence:  best.Confidence,
		Gaps:        best.Gaps,
		NeedsReview: best.NeedsReview,
		BestPolicy:  bestCode,
		Matches:     matches,
		Excerpts:    excerpt.Rank(cands, a.pack.Caps.Excerpts),
	}
}

// betterResult ranks by verdict strength, then by strictly higher confidence.
// Strict on both axes: a result never displaces an equal one, so the
// first-seen policy wins ties regardless of worker count
func betterResult(cand, cur coverage.Result) bool {
	if cand.Type != cur.Type {
		return coverage.Better(cand.Type, cur.Type)
	}
	return cand.Confidence > cur.Confidence
}

func (a *Analyzer) decomposeAll(docs []Document) []decompose.Unit {
	var units []decompose.Unit
	for _, d := range docs {
		if len(d.Criteria) > 0 {
			units = append(units, a.dec.DecomposeCriteria(d.Criteria, d.Code)...)
			continue
		}
		units = append(units, a.dec.Decompose(d.Text, d.Code)...)
	}
	return units
}

// FindUnit locates one unit by id across the decomposed corpus
func (a *Analyzer) FindUnit(docs []Document, unitID string) (decompose.Unit, error) {
	for _, u := range a.decomposeAll(docs) {
		if u.ID == unitID {
			return u, nil
		}
	}
	return decompose.Unit{}, fmt.Errorf("analyzer: unit %q not found", unitID)
}
