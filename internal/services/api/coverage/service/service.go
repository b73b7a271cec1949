// Package service contains coverage workflows: corpus runs and the stored
// views over their results
package service

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/core/analyzer"
	"github.com/valdezm/policy-auditor/internal/core/coverage"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/platform/store"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/repo"

	"github.com/google/uuid"
)

// Service defines the service contract for coverage
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	pack   *rulepack.Pack
	an     *analyzer.Analyzer
	events *repo.Events
}

// New creates a new coverage service. The clickhouse seam may be nil; the
// analytics sink then writes nowhere
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], pack *rulepack.Pack, ch store.Clickhouse) *Svc {
	if db == nil {
		panic("coverage.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("coverage.Service requires a non nil Repo binder")
	}
	if pack == nil {
		panic("coverage.Service requires a non nil rulepack")
	}
	return &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		pack:   pack,
		an:     analyzer.New(pack),
		events: repo.NewEvents(ch),
	}
}

// resolveRunID maps an empty run id to the most recent run
func (s *Svc) resolveRunID(ctx context.Context, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	id, err := s.Repo.LatestRunID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", perr.NotFoundf("no analysis runs recorded yet")
	}
	return id, nil
}

// Summary returns the corpus rollup for one run (latest when unspecified)
func (s *Svc) Summary(ctx context.Context, in domain.SummaryInput) (domain.SummaryOutput, error) {
	runID, err := s.resolveRunID(ctx, in.RunID)
	if err != nil {
		return domain.SummaryOutput{}, err
	}
	byDoc, total, err := s.matrixRollup(ctx, runID)
	if err != nil {
		return domain.SummaryOutput{}, err
	}
	return domain.SummaryOutput{RunID: runID, Summary: total, ByDoc: byDoc}, nil
}

// Assessments lists per-unit verdicts for one run, optionally filtered
func (s *Svc) Assessments(ctx context.Context, in domain.AssessmentsInput) ([]domain.AssessmentRow, error) {
	runID, err := s.resolveRunID(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.ListAssessments(ctx, repo.AssessmentFilter{
		RunID:        runID,
		DocCode:      in.DocCode,
		CoverageType: in.Type,
		NeedsReview:  in.NeedsReview,
		Limit:        in.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.AssessmentRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, assessmentDTO(r))
	}
	return out, nil
}

// Unit returns one unit's full verdict: contributors, ranked evidence and any
// recorded human review overlay
func (s *Svc) Unit(ctx context.Context, in domain.UnitViewInput) (domain.UnitView, error) {
	runID, err := s.resolveRunID(ctx, in.RunID)
	if err != nil {
		return domain.UnitView{}, err
	}
	full, err := s.Repo.GetAssessment(ctx, runID, in.UnitID)
	if err != nil {
		return domain.UnitView{}, err
	}
	if full == nil {
		return domain.UnitView{}, perr.NotFoundf("no assessment for unit %q in run %s", in.UnitID, runID)
	}

	view := domain.UnitView{AssessmentRow: assessmentDTO(full.AssessmentRead)}
	for _, m := range full.Matching {
		view.Matches = append(view.Matches, domain.PolicyMatchView{
			PolicyCode:   m.PolicyCode,
			PolicyTitle:  m.PolicyTitle,
			CoverageType: m.CoverageType,
			Confidence:   m.Confidence,
		})
	}
	for _, e := range full.Excerpts {
		view.Excerpts = append(view.Excerpts, domain.ExcerptView{
			PolicyCode:      e.PolicyCode,
			MatchedText:     e.MatchedText,
			Start:           e.Start,
			End:             e.End,
			Context:         e.Context,
			Relevance:       e.Relevance,
			MatchedElements: e.MatchedElements,
		})
	}

	rev, err := s.Repo.LatestReview(ctx, in.UnitID)
	if err != nil {
		return domain.UnitView{}, err
	}
	if rev != nil {
		rv := reviewDTO(*rev)
		view.Review = &rv
	}
	return view, nil
}

// Policy returns every unit one policy contributes evidence toward
func (s *Svc) Policy(ctx context.Context, in domain.PolicyViewInput) ([]domain.PolicyViewRow, error) {
	runID, err := s.resolveRunID(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.PolicyContributions(ctx, runID, in.PolicyCode)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PolicyViewRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PolicyViewRow{
			UnitID:       r.UnitID,
			DocCode:      r.DocCode,
			CoverageType: r.CoverageType,
			Confidence:   r.Confidence,
		})
	}
	return out, nil
}

// Matrix returns the docs-by-verdict rollup for one run
func (s *Svc) Matrix(ctx context.Context, in domain.MatrixInput) ([]domain.DocSummary, error) {
	runID, err := s.resolveRunID(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	byDoc, _, err := s.matrixRollup(ctx, runID)
	if err != nil {
		return nil, err
	}
	return byDoc, nil
}

// Review records a human verdict overlay beside the computed assessment. The
// stored assessment row is never mutated
func (s *Svc) Review(ctx context.Context, in domain.ReviewInput) (domain.ReviewView, error) {
	ok, err := s.Repo.UnitExists(ctx, in.UnitID)
	if err != nil {
		return domain.ReviewView{}, err
	}
	if !ok {
		return domain.ReviewView{}, perr.NotFoundf("requirement unit %q not found", in.UnitID)
	}

	runID, err := s.Repo.LatestRunID(ctx)
	if err != nil {
		return domain.ReviewView{}, err
	}

	rev := repo.ReviewRow{
		ID:       uuid.NewString(),
		RunID:    runID,
		UnitID:   in.UnitID,
		Verdict:  in.Verdict,
		Notes:    in.Notes,
		Reviewer: in.Reviewer,
	}
	if err := s.Repo.InsertReview(ctx, rev); err != nil {
		return domain.ReviewView{}, err
	}

	stored, err := s.Repo.LatestReview(ctx, in.UnitID)
	if err != nil {
		return domain.ReviewView{}, err
	}
	if stored == nil {
		return domain.ReviewView{}, perr.Internalf("review for unit %q not readable after insert", in.UnitID)
	}
	return reviewDTO(*stored), nil
}

// matrixRollup folds (doc, verdict) cells into per-doc and corpus counts
func (s *Svc) matrixRollup(ctx context.Context, runID string) ([]domain.DocSummary, domain.SummaryCounts, error) {
	rows, err := s.Repo.Matrix(ctx, runID)
	if err != nil {
		return nil, domain.SummaryCounts{}, err
	}

	var (
		out   []domain.DocSummary
		total domain.SummaryCounts
	)
	for _, r := range rows {
		// rows arrive ordered by doc_code; cells of one doc are adjacent
		if len(out) == 0 || out[len(out)-1].DocCode != r.DocCode {
			out = append(out, domain.DocSummary{DocCode: r.DocCode})
		}
		cur := &out[len(out)-1].Counts
		addCell(cur, r)
		addCell(&total, r)
	}
	for i := range out {
		out[i].Counts.CoveragePercent = coveragePercent(out[i].Counts)
	}
	total.CoveragePercent = coveragePercent(total)
	return out, total, nil
}

func addCell(c *domain.SummaryCounts, r repo.MatrixRow) {
	c.Total += r.Count
	c.NeedsReview += r.NeedsReview

	// stored verdicts go through the typed parse; an unrecognized value
	// counts as no coverage, same as the parse zero value
	t, err := coverage.Parse(r.CoverageType)
	if err != nil {
		t = coverage.NoCoverage
	}
	switch t {
	case coverage.FullCompliance:
		c.FullCompliance += r.Count
	case coverage.PartialCompliance:
		c.PartialCompliance += r.Count
	case coverage.ReferenceOnly:
		c.ReferenceOnly += r.Count
	case coverage.Related:
		c.Related += r.Count
	default:
		c.NoCoverage += r.Count
	}
}

// coveragePercent is the legacy two-tier rollup: full counts whole, partial
// counts half
func coveragePercent(c domain.SummaryCounts) float64 {
	if c.Total == 0 {
		return 0
	}
	return (float64(c.FullCompliance) + 0.5*float64(c.PartialCompliance)) / float64(c.Total) * 100
}

func assessmentDTO(r repo.AssessmentRead) domain.AssessmentRow {
	return domain.AssessmentRow{
		UnitID:       r.UnitID,
		DocCode:      r.DocCode,
		CoverageType: r.CoverageType,
		Confidence:   r.Confidence,
		Gaps:         r.Gaps,
		NeedsReview:  r.NeedsReview,
		BestPolicy:   r.BestPolicy,
		MatchCount:   r.MatchCount,
	}
}

func reviewDTO(r repo.ReviewRow) domain.ReviewView {
	return domain.ReviewView{
		ID:         r.ID,
		RunID:      r.RunID,
		UnitID:     r.UnitID,
		Verdict:    r.Verdict,
		Notes:      r.Notes,
		Reviewer:   r.Reviewer,
		ReviewedAt: r.ReviewedAt,
	}
}
