package service

import (
	"context"
	"strings"
	"testing"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/platform/store"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/repo"
)

// fakeDB satisfies TxRunner; Tx just runs the callback so the bound fake repo
// sees "transactional" writes
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) store.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.RowQuerier) error) error {
	return fn(fakeDB{})
}

// fakeRepo is an in-memory Repo; the binder returns the same instance for
// both the pooled and transactional paths
type fakeRepo struct {
	units    []repo.UnitRow
	policies []repo.PolicyText

	runs        []repo.RunRow
	assessments map[string][]repo.AssessmentWrite
	reviews     []repo.ReviewRow
	matrix      []repo.MatrixRow
	list        []repo.AssessmentRead
	full        *repo.AssessmentFull
	unitExists  bool
}

func (f *fakeRepo) bindTo() repokit.Binder[repo.Repo] {
	return repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return f })
}

func (f *fakeRepo) CorpusUnits(context.Context) ([]repo.UnitRow, error)      { return f.units, nil }
func (f *fakeRepo) CorpusPolicies(context.Context) ([]repo.PolicyText, error) { return f.policies, nil }

func (f *fakeRepo) InsertRun(_ context.Context, run repo.RunRow) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) LatestRunID(context.Context) (string, error) {
	if len(f.runs) == 0 {
		return "", nil
	}
	return f.runs[len(f.runs)-1].ID, nil
}

func (f *fakeRepo) InsertAssessments(_ context.Context, runID string, xs []repo.AssessmentWrite) error {
	if f.assessments == nil {
		f.assessments = map[string][]repo.AssessmentWrite{}
	}
	f.assessments[runID] = append(f.assessments[runID], xs...)
	return nil
}

func (f *fakeRepo) ListAssessments(context.Context, repo.AssessmentFilter) ([]repo.AssessmentRead, error) {
	return f.list, nil
}

func (f *fakeRepo) GetAssessment(context.Context, string, string) (*repo.AssessmentFull, error) {
	return f.full, nil
}

func (f *fakeRepo) PolicyContributions(context.Context, string, string) ([]repo.ContributionRow, error) {
	return nil, nil
}

func (f *fakeRepo) Matrix(context.Context, string) ([]repo.MatrixRow, error) { return f.matrix, nil }

func (f *fakeRepo) UnitExists(context.Context, string) (bool, error) { return f.unitExists, nil }

func (f *fakeRepo) InsertReview(_ context.Context, rev repo.ReviewRow) error {
	f.reviews = append(f.reviews, rev)
	return nil
}

func (f *fakeRepo) LatestReview(context.Context, string) (*repo.ReviewRow, error) {
	if len(f.reviews) == 0 {
		return nil, nil
	}
	rev := f.reviews[len(f.reviews)-1]
	if rev.ReviewedAt == "" {
		rev.ReviewedAt = "2026-01-01T00:00:00Z"
	}
	return &rev, nil
}

// fakeCH records analytics writes
type fakeCH struct {
	table string
	rows  [][]any
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.table = table
	f.rows = append(f.rows, data.([][]any)...)
	return nil
}
func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                              { return nil }

func seededRepo() *fakeRepo {
	return &fakeRepo{
		units: []repo.UnitRow{
			{
				ID:          "APL 23-001#1",
				DocCode:     "APL 23-001",
				Text:        "The MCP must report network changes to DHCS within 30 days.",
				References:  []string{"APL 23-001"},
				Obligations: []string{"must report network changes to dhcs within 30 days"},
				Timeframes:  []string{"30 days"},
			},
			{
				ID:          "APL 23-001#2",
				DocCode:     "APL 23-001",
				Text:        "The plan shall maintain quarterly audits of subcontractor files.",
				References:  []string{"APL 23-001"},
				Obligations: []string{"shall maintain quarterly audits of subcontractor files"},
			},
		},
		policies: []repo.PolicyText{
			{
				Code:  "MMCD-001",
				Title: "Network Reporting Policy",
				FullText: "Per APL 23-001 the plan must report network changes to DHCS " +
					"within 30 days of any material change.",
			},
			{Code: "MMCD-002", Title: "Unrelated Policy", FullText: "Parking validation procedures."},
		},
	}
}

func newTestSvc(t *testing.T, f *fakeRepo, ch store.Clickhouse) *Svc {
	t.Helper()
	return New(fakeDB{}, f.bindTo(), rulepack.MustLoad(), ch)
}

func TestRunPersistsRunAndAssessments(t *testing.T) {
	t.Parallel()

	f := seededRepo()
	ch := &fakeCH{}
	s := newTestSvc(t, f, ch)

	out, err := s.Run(context.Background(), domain.RunInput{Workers: 4})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.RunID == "" {
		t.Fatalf("Run returned empty run id")
	}
	if out.UnitCount != 2 || out.PolicyCount != 2 {
		t.Fatalf("Run counts = (%d units, %d policies), want (2, 2)", out.UnitCount, out.PolicyCount)
	}
	if out.Summary.Total != 2 {
		t.Fatalf("Summary.Total = %d, want 2", out.Summary.Total)
	}

	if len(f.runs) != 1 {
		t.Fatalf("persisted %d runs, want 1", len(f.runs))
	}
	if f.runs[0].PackFingerprint == "" {
		t.Fatalf("persisted run has empty pack fingerprint")
	}
	if got := len(f.assessments[out.RunID]); got != 2 {
		t.Fatalf("persisted %d assessments, want 2", got)
	}
}

func TestRunEmitsAnalyticsEvents(t *testing.T) {
	t.Parallel()

	f := seededRepo()
	ch := &fakeCH{}
	s := newTestSvc(t, f, ch)

	out, err := s.Run(context.Background(), domain.RunInput{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(ch.rows) == 0 {
		t.Fatalf("no analytics events written")
	}
	if !strings.HasPrefix(ch.table, "coverage_events") {
		t.Fatalf("events table = %q, want coverage_events prefix", ch.table)
	}
	for _, row := range ch.rows {
		if row[0] != out.RunID {
			t.Fatalf("event row carries run id %v, want %s", row[0], out.RunID)
		}
	}
}

func TestRunDryRunSkipsPersistence(t *testing.T) {
	t.Parallel()

	f := seededRepo()
	ch := &fakeCH{}
	s := newTestSvc(t, f, ch)

	out, err := s.Run(context.Background(), domain.RunInput{DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !out.DryRun {
		t.Fatalf("output should echo dry_run")
	}
	if len(f.runs) != 0 || len(f.assessments) != 0 || len(ch.rows) != 0 {
		t.Fatalf("dry run persisted state: runs=%d assessments=%d events=%d",
			len(f.runs), len(f.assessments), len(ch.rows))
	}
	if out.Summary.Total != 2 {
		t.Fatalf("dry run should still report the full summary, got total %d", out.Summary.Total)
	}
}

func TestRunEmptyCorpusIsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestSvc(t, &fakeRepo{}, nil)
	_, err := s.Run(context.Background(), domain.RunInput{})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Run on empty corpus = %v, want not-found", err)
	}
}

func TestSummaryRollsUpMatrix(t *testing.T) {
	t.Parallel()

	f := &fakeRepo{
		runs: []repo.RunRow{{ID: "11111111-1111-1111-1111-111111111111"}},
		matrix: []repo.MatrixRow{
			{DocCode: "APL 23-001", CoverageType: "full_compliance", Count: 2, NeedsReview: 0},
			{DocCode: "APL 23-001", CoverageType: "partial_compliance", Count: 1, NeedsReview: 1},
			{DocCode: "APL 24-002", CoverageType: "no_coverage", Count: 1, NeedsReview: 1},
		},
	}
	s := newTestSvc(t, f, nil)

	out, err := s.Summary(context.Background(), domain.SummaryInput{})
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if out.RunID != f.runs[0].ID {
		t.Fatalf("Summary used run %q, want latest %q", out.RunID, f.runs[0].ID)
	}
	if out.Summary.Total != 4 || out.Summary.FullCompliance != 2 || out.Summary.NeedsReview != 2 {
		t.Fatalf("summary counts wrong: %+v", out.Summary)
	}
	// (2 + 0.5*1) / 4 * 100
	if out.Summary.CoveragePercent != 62.5 {
		t.Fatalf("CoveragePercent = %v, want 62.5", out.Summary.CoveragePercent)
	}
	if len(out.ByDoc) != 2 || out.ByDoc[0].DocCode != "APL 23-001" || out.ByDoc[0].Counts.Total != 3 {
		t.Fatalf("per-doc rollup wrong: %+v", out.ByDoc)
	}
}

func TestSummaryBucketsVerdictsByType(t *testing.T) {
	t.Parallel()

	f := &fakeRepo{
		runs: []repo.RunRow{{ID: "11111111-1111-1111-1111-111111111111"}},
		matrix: []repo.MatrixRow{
			{DocCode: "APL 23-001", CoverageType: "reference_only", Count: 2},
			{DocCode: "APL 23-001", CoverageType: "related", Count: 1},
			{DocCode: "APL 23-001", CoverageType: "manual_review", Count: 1, NeedsReview: 1},
			// a verdict the parser does not know counts as no coverage
			{DocCode: "APL 23-001", CoverageType: "bogus_verdict", Count: 1},
		},
	}
	s := newTestSvc(t, f, nil)

	out, err := s.Summary(context.Background(), domain.SummaryInput{})
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	got := out.Summary
	if got.ReferenceOnly != 2 || got.Related != 1 {
		t.Fatalf("typed buckets wrong: %+v", got)
	}
	if got.NoCoverage != 2 {
		t.Fatalf("manual_review and unknown verdicts should count as no coverage, got %+v", got)
	}
	if got.Total != 5 || got.CoveragePercent != 0 {
		t.Fatalf("rollup wrong: %+v", got)
	}
}

func TestSummaryNoRunsIsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestSvc(t, &fakeRepo{}, nil)
	_, err := s.Summary(context.Background(), domain.SummaryInput{})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Summary with no runs = %v, want not-found", err)
	}
}

func TestUnitNotFound(t *testing.T) {
	t.Parallel()

	f := &fakeRepo{runs: []repo.RunRow{{ID: "11111111-1111-1111-1111-111111111111"}}}
	s := newTestSvc(t, f, nil)

	_, err := s.Unit(context.Background(), domain.UnitViewInput{UnitID: "missing#1"})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Unit for unknown id = %v, want not-found", err)
	}
}

func TestUnitIncludesReviewOverlay(t *testing.T) {
	t.Parallel()

	f := &fakeRepo{
		runs: []repo.RunRow{{ID: "11111111-1111-1111-1111-111111111111"}},
		full: &repo.AssessmentFull{
			AssessmentRead: repo.AssessmentRead{
				UnitID: "APL 23-001#1", DocCode: "APL 23-001",
				CoverageType: "partial_compliance", Confidence: 0.5,
			},
			Matching: []repo.MatchJSON{{PolicyCode: "MMCD-001", CoverageType: "partial_compliance", Confidence: 0.5}},
		},
		reviews: []repo.ReviewRow{{
			ID: "rev-1", UnitID: "APL 23-001#1", Verdict: "full_compliance", Reviewer: "j.alvarez",
		}},
	}
	s := newTestSvc(t, f, nil)

	view, err := s.Unit(context.Background(), domain.UnitViewInput{UnitID: "APL 23-001#1"})
	if err != nil {
		t.Fatalf("Unit returned error: %v", err)
	}
	if len(view.Matches) != 1 || view.Matches[0].PolicyCode != "MMCD-001" {
		t.Fatalf("contributors not surfaced: %+v", view.Matches)
	}
	if view.Review == nil || view.Review.Verdict != "full_compliance" {
		t.Fatalf("review overlay not surfaced: %+v", view.Review)
	}
}

func TestReviewUnknownUnitIsNotFound(t *testing.T) {
	t.Parallel()

	s := newTestSvc(t, &fakeRepo{unitExists: false}, nil)
	_, err := s.Review(context.Background(), domain.ReviewInput{
		UnitID: "missing#1", Verdict: "full_compliance", Reviewer: "j.alvarez",
	})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Review for unknown unit = %v, want not-found", err)
	}
}

func TestReviewNeverMutatesAssessment(t *testing.T) {
	t.Parallel()

	f := &fakeRepo{
		unitExists: true,
		runs:       []repo.RunRow{{ID: "11111111-1111-1111-1111-111111111111"}},
		assessments: map[string][]repo.AssessmentWrite{
			"11111111-1111-1111-1111-111111111111": {{UnitID: "APL 23-001#1", CoverageType: "no_coverage"}},
		},
	}
	s := newTestSvc(t, f, nil)

	view, err := s.Review(context.Background(), domain.ReviewInput{
		UnitID: "APL 23-001#1", Verdict: "full_compliance", Reviewer: "j.alvarez",
	})
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if view.Verdict != "full_compliance" || view.RunID != f.runs[0].ID {
		t.Fatalf("review view wrong: %+v", view)
	}
	// stored verdicts stay untouched
	stored := f.assessments[f.runs[0].ID]
	if len(stored) != 1 || stored[0].CoverageType != "no_coverage" {
		t.Fatalf("assessment mutated by review: %+v", stored)
	}
}
