// Package http provides http transport for coverage
package http

import (
	stdhttp "net/http"

	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/domain"
	svc "github.com/valdezm/policy-auditor/internal/services/api/coverage/service"
)

// Register mounts coverage endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.RunInput](r, "/run", h.run)
	httpkit.PostJSON[domain.SummaryInput](r, "/summary", h.summary)
	httpkit.PostJSON[domain.AssessmentsInput](r, "/assessments", h.assessments)
	httpkit.PostJSON[domain.UnitViewInput](r, "/unit", h.unit)
	httpkit.PostJSON[domain.PolicyViewInput](r, "/policy", h.policy)
	httpkit.PostJSON[domain.MatrixInput](r, "/matrix", h.matrix)
	httpkit.PostJSON[domain.ReviewInput](r, "/review", h.review)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /coverage/run Coverage coverageRun
// @Summary Score the whole requirement corpus against the active policies
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.RunInput true "Run options"
// @Success 200 {object} domain.RunOutput "ok"
// @Failure 404 {object} httpkit.Envelope "nothing ingested yet"
// @Router /coverage/run [post]
func (h *handlers) run(r *stdhttp.Request, in domain.RunInput) (any, error) {
	return h.svc.Run(r.Context(), in)
}

// swagger:route POST /coverage/summary Coverage coverageSummary
// @Summary Corpus-wide verdict rollup for one run
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.SummaryInput true "Run selector; empty run_id means latest"
// @Success 200 {object} domain.SummaryOutput "ok"
// @Failure 404 {object} httpkit.Envelope "no runs recorded"
// @Router /coverage/summary [post]
func (h *handlers) summary(r *stdhttp.Request, in domain.SummaryInput) (any, error) {
	return h.svc.Summary(r.Context(), in)
}

// swagger:route POST /coverage/assessments Coverage coverageAssessments
// @Summary List per-unit verdicts with filters
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.AssessmentsInput true "Filters"
// @Success 200 {array} domain.AssessmentRow "ok"
// @Failure 404 {object} httpkit.Envelope "no runs recorded"
// @Router /coverage/assessments [post]
func (h *handlers) assessments(r *stdhttp.Request, in domain.AssessmentsInput) (any, error) {
	return h.svc.Assessments(r.Context(), in)
}

// swagger:route POST /coverage/unit Coverage coverageUnit
// @Summary Full verdict for one requirement unit
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.UnitViewInput true "Selector"
// @Success 200 {object} domain.UnitView "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /coverage/unit [post]
func (h *handlers) unit(r *stdhttp.Request, in domain.UnitViewInput) (any, error) {
	return h.svc.Unit(r.Context(), in)
}

// swagger:route POST /coverage/policy Coverage coveragePolicy
// @Summary Units one policy contributes evidence toward
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.PolicyViewInput true "Selector"
// @Success 200 {array} domain.PolicyViewRow "ok"
// @Failure 404 {object} httpkit.Envelope "no runs recorded"
// @Router /coverage/policy [post]
func (h *handlers) policy(r *stdhttp.Request, in domain.PolicyViewInput) (any, error) {
	return h.svc.Policy(r.Context(), in)
}

// swagger:route POST /coverage/matrix Coverage coverageMatrix
// @Summary Docs-by-verdict matrix for one run
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.MatrixInput true "Run selector; empty run_id means latest"
// @Success 200 {array} domain.DocSummary "ok"
// @Failure 404 {object} httpkit.Envelope "no runs recorded"
// @Router /coverage/matrix [post]
func (h *handlers) matrix(r *stdhttp.Request, in domain.MatrixInput) (any, error) {
	return h.svc.Matrix(r.Context(), in)
}

// swagger:route POST /coverage/review Coverage coverageReview
// @Summary Record a human verdict overlay for one unit
// @Tags Coverage
// @Accept json
// @Produce json
// @Param payload body domain.ReviewInput true "Review"
// @Success 200 {object} domain.ReviewView "ok"
// @Failure 404 {object} httpkit.Envelope "unit not found"
// @Router /coverage/review [post]
func (h *handlers) review(r *stdhttp.Request, in domain.ReviewInput) (any, error) {
	return h.svc.Review(r.Context(), in)
}
