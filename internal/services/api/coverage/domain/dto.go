// Package domain holds DTOs for coverage http and service contracts
package domain

// RunInput starts a corpus analysis run
type RunInput struct {
	Workers int `json:"workers,omitempty" validate:"omitempty,min=1,max=64" example:"8"`
	// DryRun computes the report without persisting anything
	DryRun bool `json:"dry_run,omitempty" example:"false"`
}

// SummaryCounts is the per-verdict rollup
type SummaryCounts struct {
	Total             int     `json:"total" example:"120"`
	FullCompliance    int     `json:"full_compliance" example:"40"`
	PartialCompliance int     `json:"partial_compliance" example:"25"`
	ReferenceOnly     int     `json:"reference_only" example:"18"`
	Related           int     `json:"related" example:"12"`
	NoCoverage        int     `json:"no_coverage" example:"25"`
	NeedsReview       int     `json:"needs_review" example:"45"`
	CoveragePercent   float64 `json:"coverage_percent" example:"43.75"`
}

// DocSummary is the rollup for one requirement document
type DocSummary struct {
	DocCode string        `json:"doc_code" example:"APL 23-001"`
	Counts  SummaryCounts `json:"counts"`
}

// RunOutput reports a completed analysis run
type RunOutput struct {
	RunID           string        `json:"run_id" example:"0c9a3e44-d2f8-4a4f-5b6c-1f2e3d4c5b6a"`
	PackFingerprint string        `json:"pack_fingerprint" example:"9f2c8a..."`
	PolicyCount     int           `json:"policy_count" example:"230"`
	UnitCount       int           `json:"unit_count" example:"120"`
	DurationMs      int64         `json:"duration_ms" example:"1840"`
	DryRun          bool          `json:"dry_run" example:"false"`
	Summary         SummaryCounts `json:"summary"`
	ByDoc           []DocSummary  `json:"by_doc"`
}

// SummaryInput selects the corpus summary view; empty run id means latest
type SummaryInput struct {
	RunID string `json:"run_id,omitempty" validate:"omitempty,uuid" example:"0c9a3e44-d2f8-4a4f-5b6c-1f2e3d4c5b6a"`
}

// SummaryOutput is the corpus-wide summary view
type SummaryOutput struct {
	RunID   string        `json:"run_id" example:"0c9a3e44-d2f8-4a4f-5b6c-1f2e3d4c5b6a"`
	Summary SummaryCounts `json:"summary"`
	ByDoc   []DocSummary  `json:"by_doc"`
}

// AssessmentsInput filters the detailed view
type AssessmentsInput struct {
	RunID   string `json:"run_id,omitempty"   validate:"omitempty,uuid"`
	DocCode string `json:"doc_code,omitempty" validate:"omitempty,min=1,max=100" example:"APL 23-001"`
	Type    string `json:"type,omitempty"     validate:"omitempty,oneof=full_compliance partial_compliance reference_only related manual_review no_coverage" example:"partial_compliance"` //nolint:lll
	// NeedsReview filters to flagged/unflagged rows when set
	NeedsReview *bool `json:"needs_review,omitempty" example:"true"`
	Limit       int   `json:"limit,omitempty" validate:"omitempty,min=1,max=1000" example:"200"`
}

// AssessmentRow is one per-unit verdict in the detailed view
type AssessmentRow struct {
	UnitID       string   `json:"unit_id" example:"APL 23-001#1"`
	DocCode      string   `json:"doc_code" example:"APL 23-001"`
	CoverageType string   `json:"coverage_type" example:"full_compliance"`
	Confidence   float64  `json:"confidence" example:"0.82"`
	Gaps         []string `json:"gaps,omitempty"`
	NeedsReview  bool     `json:"needs_review" example:"false"`
	BestPolicy   string   `json:"best_policy,omitempty" example:"MMCD-001"`
	MatchCount   int      `json:"match_count" example:"3"`
}

// PolicyMatchView is one contributing policy in the per-unit view
type PolicyMatchView struct {
	PolicyCode   string  `json:"policy_code" example:"MMCD-001"`
	PolicyTitle  string  `json:"policy_title" example:"Network Reporting Policy"`
	CoverageType string  `json:"coverage_type" example:"reference_only"`
	Confidence   float64 `json:"confidence" example:"0.35"`
}

// ExcerptView is one ranked evidence window
type ExcerptView struct {
	PolicyCode      string   `json:"policy_code" example:"MMCD-001"`
	MatchedText     string   `json:"matched_text" example:"WIC 14197.7"`
	Start           int      `json:"start" example:"1204"`
	End             int      `json:"end" example:"1215"`
	Context         string   `json:"context"`
	Relevance       float64  `json:"relevance" example:"0.8"`
	MatchedElements []string `json:"matched_elements,omitempty"`
}

// UnitViewInput selects the per-requirement view
type UnitViewInput struct {
	RunID  string `json:"run_id,omitempty" validate:"omitempty,uuid"`
	UnitID string `json:"unit_id" validate:"required,min=1,max=200" example:"APL 23-001#1"`
}

// UnitView is the full per-requirement verdict with contributors and evidence
type UnitView struct {
	AssessmentRow
	Matches  []PolicyMatchView `json:"matches,omitempty"`
	Excerpts []ExcerptView     `json:"excerpts,omitempty"`
	Review   *ReviewView       `json:"review,omitempty"`
}

// PolicyViewInput selects the per-policy view
type PolicyViewInput struct {
	RunID      string `json:"run_id,omitempty" validate:"omitempty,uuid"`
	PolicyCode string `json:"policy_code" validate:"required,min=1,max=100" example:"MMCD-001"`
}

// PolicyViewRow is one unit a policy contributes evidence toward
type PolicyViewRow struct {
	UnitID       string  `json:"unit_id" example:"APL 23-001#1"`
	DocCode      string  `json:"doc_code" example:"APL 23-001"`
	CoverageType string  `json:"coverage_type" example:"partial_compliance"`
	Confidence   float64 `json:"confidence" example:"0.55"`
}

// MatrixInput selects the docs-by-verdict matrix; empty run id means latest
type MatrixInput struct {
	RunID string `json:"run_id,omitempty" validate:"omitempty,uuid"`
}

// ReviewInput records a human verdict overlay for one unit. The computed
// assessment is never overwritten; the overlay sits beside it
type ReviewInput struct {
	UnitID   string `json:"unit_id" validate:"required,min=1,max=200" example:"APL 23-001#1"`
	Verdict  string `json:"verdict" validate:"required,oneof=full_compliance partial_compliance reference_only related manual_review no_coverage" example:"full_compliance"` //nolint:lll
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=4000" example:"Confirmed against section 4.2 of the policy"`
	Reviewer string `json:"reviewer" validate:"required,min=1,max=200" example:"j.alvarez"`
}

// ReviewView is a recorded human review
type ReviewView struct {
	ID         string `json:"id" example:"7c1b0a9e-..."`
	RunID      string `json:"run_id,omitempty"`
	UnitID     string `json:"unit_id" example:"APL 23-001#1"`
	Verdict    string `json:"verdict" example:"full_compliance"`
	Notes      string `json:"notes,omitempty"`
	Reviewer   string `json:"reviewer" example:"j.alvarez"`
	ReviewedAt string `json:"reviewed_at" example:"2026-02-03T17:22:00Z"`
}
