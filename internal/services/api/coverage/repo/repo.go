// Package repo provides postgres access for coverage runs and assessments
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
)

// Repo defines the repository contract for coverage
type Repo interface {
	CorpusUnits(ctx context.Context) ([]UnitRow, error)
	CorpusPolicies(ctx context.Context) ([]PolicyText, error)

	InsertRun(ctx context.Context, run RunRow) error
	LatestRunID(ctx context.Context) (string, error)
	InsertAssessments(ctx context.Context, runID string, rows []AssessmentWrite) error

	ListAssessments(ctx context.Context, f AssessmentFilter) ([]AssessmentRead, error)
	GetAssessment(ctx context.Context, runID, unitID string) (*AssessmentFull, error)
	PolicyContributions(ctx context.Context, runID, policyCode string) ([]ContributionRow, error)
	Matrix(ctx context.Context, runID string) ([]MatrixRow, error)

	UnitExists(ctx context.Context, unitID string) (bool, error)
	InsertReview(ctx context.Context, rev ReviewRow) error
	LatestReview(ctx context.Context, unitID string) (*ReviewRow, error)
}

// UnitRow is a persisted requirement unit read back for scoring
type UnitRow struct {
	ID           string
	DocCode      string
	SectionLabel string
	Text         string
	References   []string
	Obligations  []string
	Timeframes   []string
	Definitions  map[string]string
}

// PolicyText is one policy prepared for corpus scanning
type PolicyText struct {
	Code     string
	Title    string
	FullText string
}

// RunRow records one analysis run's provenance
type RunRow struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	PackFingerprint string
	PolicyCount     int
	UnitCount       int
}

// MatchJSON is one contributing policy, stored inside the assessment row
type MatchJSON struct {
	PolicyCode   string  `json:"policy_code"`
	PolicyTitle  string  `json:"policy_title"`
	CoverageType string  `json:"coverage_type"`
	Confidence   float64 `json:"confidence"`
}

// ExcerptJSON is one ranked evidence window, stored inside the assessment row
type ExcerptJSON struct {
	PolicyCode      string   `json:"policy_code"`
	MatchedText     string   `json:"matched_text"`
	Start           int      `json:"start"`
	End             int      `json:"end"`
	Context         string   `json:"context"`
	Relevance       float64  `json:"relevance"`
	MatchedElements []string `json:"matched_elements,omitempty"`
}

// AssessmentWrite is one per-unit verdict to persist
type AssessmentWrite struct {
	UnitID       string
	DocCode      string
	CoverageType string
	Confidence   float64
	Gaps         []string
	NeedsReview  bool
	BestPolicy   string
	Matching     []MatchJSON
	Excerpts     []ExcerptJSON
}

// AssessmentRead is the detailed-view projection of a stored verdict
type AssessmentRead struct {
	UnitID       string
	DocCode      string
	CoverageType string
	Confidence   float64
	Gaps         []string
	NeedsReview  bool
	BestPolicy   string
	MatchCount   int
}

// AssessmentFull is AssessmentRead plus contributors and evidence
type AssessmentFull struct {
	AssessmentRead
	Matching []MatchJSON
	Excerpts []ExcerptJSON
}

// AssessmentFilter narrows the detailed view
type AssessmentFilter struct {
	RunID        string
	DocCode      string
	CoverageType string
	NeedsReview  *bool
	Limit        int
}

// ContributionRow is one unit a policy contributes evidence toward
type ContributionRow struct {
	UnitID       string
	DocCode      string
	CoverageType string
	Confidence   float64
}

// MatrixRow is one (doc, verdict) cell with counts
type MatrixRow struct {
	DocCode      string
	CoverageType string
	Count        int
	NeedsReview  int
}

// ReviewRow is the manual-review overlay record
type ReviewRow struct {
	ID         string
	RunID      string
	UnitID     string
	Verdict    string
	Notes      string
	Reviewer   string
	ReviewedAt string
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) CorpusUnits(ctx context.Context) ([]UnitRow, error) {
	const sql = `
select id, doc_code, section_label, text, refs, obligations, timeframes, definitions
from requirement_units
order by doc_code, position
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnitRow
	for rows.Next() {
		var (
			u                     UnitRow
			refs, obls, tfs, defs []byte
		)
		if err := rows.Scan(&u.ID, &u.DocCode, &u.SectionLabel, &u.Text, &refs, &obls, &tfs, &defs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(refs, &u.References); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(obls, &u.Obligations); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tfs, &u.Timeframes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(defs, &u.Definitions); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *queries) CorpusPolicies(ctx context.Context) ([]PolicyText, error) {
	const sql = `
select code, title, coalesce(full_text, '')
from policies
where status <> 'retired'
order by code
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PolicyText
	for rows.Next() {
		var p PolicyText
		if err := rows.Scan(&p.Code, &p.Title, &p.FullText); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *queries) InsertRun(ctx context.Context, run RunRow) error {
	const sql = `
insert into assessment_runs (id, started_at, finished_at, pack_fingerprint, policy_count, unit_count)
values ($1, $2, $3, $4, $5, $6)
`
	_, err := r.q.Exec(ctx, sql,
		run.ID, run.StartedAt, run.FinishedAt, run.PackFingerprint, run.PolicyCount, run.UnitCount)
	return err
}

func (r *queries) LatestRunID(ctx context.Context) (string, error) {
	rows, err := r.q.Query(ctx, `select id::text from assessment_runs order by started_at desc limit 1`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if !rows.Next() {
		return "", rows.Err()
	}
	var id string
	if err := rows.Scan(&id); err != nil {
		return "", err
	}
	return id, rows.Err()
}

func (r *queries) InsertAssessments(ctx context.Context, runID string, xs []AssessmentWrite) error {
	if len(xs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`insert into assessments
		(run_id, unit_id, doc_code, coverage_type, confidence, gaps, needs_review,
		best_policy_code, matching, excerpts) values `)

	args := make([]any, 0, len(xs)*10)
	for i, a := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*10 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)

		gaps, err := json.Marshal(orEmpty(a.Gaps))
		if err != nil {
			return err
		}
		matching, err := json.Marshal(orEmptyMatches(a.Matching))
		if err != nil {
			return err
		}
		excerpts, err := json.Marshal(orEmptyExcerpts(a.Excerpts))
		if err != nil {
			return err
		}
		args = append(args,
			runID, a.UnitID, a.DocCode, a.CoverageType, a.Confidence,
			gaps, a.NeedsReview, a.BestPolicy, matching, excerpts)
	}
	_, err := r.q.Exec(ctx, sb.String(), args...)
	return err
}

func (r *queries) ListAssessments(ctx context.Context, f AssessmentFilter) ([]AssessmentRead, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	var sb strings.Builder
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`
select unit_id, doc_code, coverage_type, confidence, gaps, needs_review,
coalesce(best_policy_code, ''), jsonb_array_length(matching)
from assessments
where run_id = ` + arg(f.RunID))
	if f.DocCode != "" {
		sb.WriteString(` and doc_code = ` + arg(f.DocCode))
	}
	if f.CoverageType != "" {
		sb.WriteString(` and coverage_type = ` + arg(f.CoverageType))
	}
	if f.NeedsReview != nil {
		sb.WriteString(` and needs_review = ` + arg(*f.NeedsReview))
	}
	sb.WriteString(` order by doc_code, unit_id limit ` + arg(limit))

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssessmentRead
	for rows.Next() {
		var (
			a    AssessmentRead
			gaps []byte
		)
		if err := rows.Scan(&a.UnitID, &a.DocCode, &a.CoverageType, &a.Confidence,
			&gaps, &a.NeedsReview, &a.BestPolicy, &a.MatchCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(gaps, &a.Gaps); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *queries) GetAssessment(ctx context.Context, runID, unitID string) (*AssessmentFull, error) {
	const sql = `
select unit_id, doc_code, coverage_type, confidence, gaps, needs_review,
coalesce(best_policy_code, ''), matching, excerpts
from assessments
where run_id = $1 and unit_id = $2
`
	rows, err := r.q.Query(ctx, sql, runID, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		a                        AssessmentFull
		gaps, matching, excerpts []byte
	)
	if err := rows.Scan(&a.UnitID, &a.DocCode, &a.CoverageType, &a.Confidence,
		&gaps, &a.NeedsReview, &a.BestPolicy, &matching, &excerpts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(gaps, &a.Gaps); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matching, &a.Matching); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(excerpts, &a.Excerpts); err != nil {
		return nil, err
	}
	a.MatchCount = len(a.Matching)
	return &a, rows.Err()
}

func (r *queries) PolicyContributions(ctx context.Context, runID, policyCode string) ([]ContributionRow, error) {
	const sql = `
select a.unit_id, a.doc_code, m->>'coverage_type', (m->>'confidence')::float8
from assessments a, jsonb_array_elements(a.matching) m
where a.run_id = $1 and m->>'policy_code' = $2
order by a.doc_code, a.unit_id
`
	rows, err := r.q.Query(ctx, sql, runID, policyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContributionRow
	for rows.Next() {
		var c ContributionRow
		if err := rows.Scan(&c.UnitID, &c.DocCode, &c.CoverageType, &c.Confidence); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *queries) Matrix(ctx context.Context, runID string) ([]MatrixRow, error) {
	const sql = `
select doc_code, coverage_type, count(*), sum(case when needs_review then 1 else 0 end)
from assessments
where run_id = $1
group by doc_code, coverage_type
order by doc_code, coverage_type
`
	rows, err := r.q.Query(ctx, sql, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatrixRow
	for rows.Next() {
		var m MatrixRow
		if err := rows.Scan(&m.DocCode, &m.CoverageType, &m.Count, &m.NeedsReview); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) UnitExists(ctx context.Context, unitID string) (bool, error) {
	rows, err := r.q.Query(ctx, `select 1 from requirement_units where id = $1`, unitID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

func (r *queries) InsertReview(ctx context.Context, rev ReviewRow) error {
	const sql = `
insert into reviews (id, run_id, unit_id, verdict_override, notes, reviewed_by, reviewed_at)
values ($1, nullif($2, '')::uuid, $3, $4, $5, $6, now())
`
	_, err := r.q.Exec(ctx, sql, rev.ID, rev.RunID, rev.UnitID, rev.Verdict, rev.Notes, rev.Reviewer)
	return err
}

func (r *queries) LatestReview(ctx context.Context, unitID string) (*ReviewRow, error) {
	const sql = `
select id::text, coalesce(run_id::text, ''), unit_id, verdict_override, coalesce(notes, ''),
reviewed_by, reviewed_at::text
from reviews
where unit_id = $1
order by reviewed_at desc
limit 1
`
	rows, err := r.q.Query(ctx, sql, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var rev ReviewRow
	if err := rows.Scan(&rev.ID, &rev.RunID, &rev.UnitID, &rev.Verdict,
		&rev.Notes, &rev.Reviewer, &rev.ReviewedAt); err != nil {
		return nil, err
	}
	return &rev, rows.Err()
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func orEmptyMatches(xs []MatchJSON) []MatchJSON {
	if xs == nil {
		return []MatchJSON{}
	}
	return xs
}

func orEmptyExcerpts(xs []ExcerptJSON) []ExcerptJSON {
	if xs == nil {
		return []ExcerptJSON{}
	}
	return xs
}
