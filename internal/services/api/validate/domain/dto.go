// Package domain holds DTOs for validate http and service contracts
package domain

// ValidateInput selects one (policy, unit) pair for an advisory opinion
type ValidateInput struct {
	PolicyCode string `json:"policy_code" validate:"required,min=1,max=100" example:"MMCD-001"`
	UnitID     string `json:"unit_id" validate:"required,min=1,max=200" example:"APL 23-001#1"`
}

// BatchInput validates one policy against many units. Per-pair failures
// degrade to the unclear result and never abort the batch
type BatchInput struct {
	PolicyCode string   `json:"policy_code" validate:"required,min=1,max=100" example:"MMCD-001"`
	UnitIDs    []string `json:"unit_ids" validate:"required,min=1,max=200,dive,min=1,max=200"`
}

// ValidationView is one advisory opinion, freshly generated or cached
type ValidationView struct {
	PolicyCode string `json:"policy_code" example:"MMCD-001"`
	UnitID     string `json:"unit_id" example:"APL 23-001#1"`

	Rating          string   `json:"rating" example:"partially_compliant"`
	ConfidenceLevel string   `json:"confidence_level" example:"medium"`
	Score           float64  `json:"score" example:"0.65"`
	Reasoning       string   `json:"reasoning"`
	Excerpts        []string `json:"excerpts,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Priority        string   `json:"priority" example:"medium"`

	Model     string `json:"model" example:"gemini-2.0-flash"`
	Cached    bool   `json:"cached" example:"false"`
	CreatedAt string `json:"created_at,omitempty" example:"2026-02-03T17:22:00Z"`
}

// BatchOutput carries one result per requested unit, in request order
type BatchOutput struct {
	PolicyCode string           `json:"policy_code" example:"MMCD-001"`
	Results    []ValidationView `json:"results"`
}
