// Package service contains the advisory validator workflow: cache-first
// model opinions per (policy, requirement unit) pair
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	"github.com/valdezm/policy-auditor/internal/services/api/validate/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/validate/repo"

	"github.com/google/uuid"
)

// policyTextCap bounds the policy text sent to the model; the stored policy
// text can far exceed the model's useful context
const policyTextCap = 8000

// Service defines the service contract for validate
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	model  Model
}

// New creates a new validate service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], model Model) *Svc {
	if db == nil {
		panic("validate.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("validate.Service requires a non nil Repo binder")
	}
	if model == nil {
		panic("validate.Service requires a non nil Model")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, model: model}
}

// Validate returns the advisory opinion for one (policy, unit) pair, served
// from cache when the same pair with the same requirement text was already
// scored. A model failure degrades to the unclear result; it is not an error
func (s *Svc) Validate(ctx context.Context, in domain.ValidateInput) (domain.ValidationView, error) {
	pol, err := s.Repo.PolicyText(ctx, in.PolicyCode)
	if err != nil {
		return domain.ValidationView{}, err
	}
	if pol == nil {
		return domain.ValidationView{}, perr.NotFoundf("policy %q not found", in.PolicyCode)
	}
	unit, err := s.Repo.UnitByID(ctx, in.UnitID)
	if err != nil {
		return domain.ValidationView{}, err
	}
	if unit == nil {
		return domain.ValidationView{}, perr.NotFoundf("requirement unit %q not found", in.UnitID)
	}
	return s.validatePair(ctx, *pol, *unit), nil
}

// ValidateBatch scores one policy against many units. Each pair is isolated:
// an unknown unit or a model failure yields that pair's unclear result and
// the batch continues
func (s *Svc) ValidateBatch(ctx context.Context, in domain.BatchInput) (domain.BatchOutput, error) {
	pol, err := s.Repo.PolicyText(ctx, in.PolicyCode)
	if err != nil {
		return domain.BatchOutput{}, err
	}
	if pol == nil {
		return domain.BatchOutput{}, perr.NotFoundf("policy %q not found", in.PolicyCode)
	}

	out := domain.BatchOutput{PolicyCode: in.PolicyCode}
	for _, unitID := range in.UnitIDs {
		unit, err := s.Repo.UnitByID(ctx, unitID)
		if err != nil || unit == nil {
			if err != nil {
				logger.C(ctx).Warn().Err(err).Str("unit_id", unitID).Msg("validate: unit lookup failed")
			}
			out.Results = append(out.Results,
				fallbackView(in.PolicyCode, unitID, s.model.Name(),
					fmt.Sprintf("requirement unit %q could not be loaded", unitID)))
			continue
		}
		out.Results = append(out.Results, s.validatePair(ctx, *pol, *unit))
	}
	return out, nil
}

func (s *Svc) validatePair(ctx context.Context, pol repo.PolicyText, unit repo.UnitRow) domain.ValidationView {
	key := cacheKey(pol.Code, unit.ID, unit.Text)

	cached, err := s.Repo.GetCached(ctx, key)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("cache_key", key).Msg("validate: cache lookup failed")
	}
	if cached != nil {
		v := viewFrom(*cached)
		v.Cached = true
		return v
	}

	opinion, err := s.askModel(ctx, pol, unit)
	if err != nil {
		logger.C(ctx).Warn().Err(err).
			Str("policy", pol.Code).
			Str("unit_id", unit.ID).
			Msg("validate: model opinion failed")
		return fallbackView(pol.Code, unit.ID, s.model.Name(), "validation failed: "+err.Error())
	}

	row := repo.ValidationRow{
		ID:              uuid.NewString(),
		CacheKey:        key,
		PolicyCode:      pol.Code,
		UnitID:          unit.ID,
		Rating:          opinion.Rating,
		ConfidenceLevel: levelFor(opinion.Score),
		Score:           opinion.Score,
		Reasoning:       opinion.Reasoning,
		Excerpts:        opinion.Excerpts,
		Recommendations: opinion.Recommendations,
		Priority:        opinion.Priority,
		Model:           s.model.Name(),
	}
	// Failures above are never cached, so a later request can retry; only
	// real opinions are worth remembering
	if err := s.Repo.Insert(ctx, row); err != nil {
		logger.C(ctx).Warn().Err(err).Str("cache_key", key).Msg("validate: cache write failed")
	}
	return viewFrom(row)
}

// opinion is the parsed model response
type opinion struct {
	Rating          string
	Score           float64 // normalized to [0,1]
	Reasoning       string
	Excerpts        []string
	Recommendations []string
	Priority        string
}

func (s *Svc) askModel(ctx context.Context, pol repo.PolicyText, unit repo.UnitRow) (opinion, error) {
	raw, err := s.model.Opinion(ctx, buildPrompt(pol, unit))
	if err != nil {
		return opinion{}, err
	}

	var wire struct {
		ComplianceRating string   `json:"compliance_rating"`
		ConfidenceScore  float64  `json:"confidence_score"`
		Reasoning        string   `json:"reasoning"`
		MissingElements  []string `json:"missing_elements"`
		Recommendations  []string `json:"recommendations"`
		PolicyExcerpts   []string `json:"relevant_policy_excerpts"`
		PriorityLevel    string   `json:"priority_level"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return opinion{}, fmt.Errorf("validate: parse opinion: %w", err)
	}

	switch wire.ComplianceRating {
	case "fully_compliant", "partially_compliant", "non_compliant", "unclear", "not_applicable":
	default:
		return opinion{}, fmt.Errorf("validate: unknown rating %q", wire.ComplianceRating)
	}

	score := wire.ConfidenceScore / 100
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	recs := wire.Recommendations
	for _, missing := range wire.MissingElements {
		recs = append(recs, "address missing element: "+missing)
	}
	priority := wire.PriorityLevel
	if priority == "" {
		priority = "medium"
	}
	return opinion{
		Rating:          wire.ComplianceRating,
		Score:           score,
		Reasoning:       wire.Reasoning,
		Excerpts:        wire.PolicyExcerpts,
		Recommendations: recs,
		Priority:        priority,
	}, nil
}

func buildPrompt(pol repo.PolicyText, unit repo.UnitRow) string {
	text := truncate(pol.FullText, policyTextCap)

	var b strings.Builder
	b.WriteString("Analyze the following policy document for compliance with the regulatory requirement.\n\n")
	b.WriteString("REGULATORY REQUIREMENT:\n")
	fmt.Fprintf(&b, "Reference: %s (%s)\n", unit.DocCode, unit.ID)
	fmt.Fprintf(&b, "Text: %s\n", unit.Text)
	if len(unit.Obligations) > 0 {
		fmt.Fprintf(&b, "Key obligations: %s\n", strings.Join(unit.Obligations, "; "))
	}
	if len(unit.Timeframes) > 0 {
		fmt.Fprintf(&b, "Timeframes: %s\n", strings.Join(unit.Timeframes, "; "))
	}
	if len(unit.References) > 0 {
		fmt.Fprintf(&b, "Related regulations: %s\n", strings.Join(unit.References, "; "))
	}
	for term, def := range unit.Definitions {
		fmt.Fprintf(&b, "Definition %q: %s\n", term, def)
	}
	b.WriteString("\nPOLICY DOCUMENT:\n")
	fmt.Fprintf(&b, "%s (%s)\n", pol.Title, pol.Code)
	b.WriteString(text)
	b.WriteString("\n\nDetermine the compliance rating, a 0-100 confidence score, detailed reasoning, ")
	b.WriteString("missing elements, actionable recommendations, the policy excerpts supporting the ")
	b.WriteString("analysis, and the priority for addressing any issues.")
	return b.String()
}

// truncate bounds s to max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// cacheKey identifies a (policy, unit, requirement-text) triple; re-decomposed
// units with changed text miss the cache on purpose
func cacheKey(policyCode, unitID, unitText string) string {
	sum := sha256.Sum256([]byte(policyCode + "|" + unitID + "|" + unitText))
	return hex.EncodeToString(sum[:])
}

// levelFor buckets a [0,1] score the way reviewers read it
func levelFor(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// fallbackView is the degraded result for a pair whose validation could not
// complete. It always demands a high-priority manual review
func fallbackView(policyCode, unitID, model, reason string) domain.ValidationView {
	return domain.ValidationView{
		PolicyCode:      policyCode,
		UnitID:          unitID,
		Rating:          "unclear",
		ConfidenceLevel: "low",
		Score:           0,
		Reasoning:       reason,
		Recommendations: []string{"Manual review required due to validation failure"},
		Priority:        "high",
		Model:           model,
	}
}

func viewFrom(r repo.ValidationRow) domain.ValidationView {
	v := domain.ValidationView{
		PolicyCode:      r.PolicyCode,
		UnitID:          r.UnitID,
		Rating:          r.Rating,
		ConfidenceLevel: r.ConfidenceLevel,
		Score:           r.Score,
		Reasoning:       r.Reasoning,
		Excerpts:        r.Excerpts,
		Recommendations: r.Recommendations,
		Priority:        r.Priority,
		Model:           r.Model,
	}
	if !r.CreatedAt.IsZero() {
		v.CreatedAt = r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}
