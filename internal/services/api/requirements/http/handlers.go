// Package http provides http transport for requirements
package http

import (
	stdhttp "net/http"

	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	"github.com/valdezm/policy-auditor/internal/services/api/requirements/domain"
	svc "github.com/valdezm/policy-auditor/internal/services/api/requirements/service"
)

// Register mounts requirements endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.DocsInput](r, "/docs", h.docs)
	httpkit.PostJSON[domain.UnitsInput](r, "/units", h.units)
	httpkit.PostJSON[domain.UnitInput](r, "/unit", h.unit)
	httpkit.PostJSON[domain.RedecomposeInput](r, "/redecompose", h.redecompose)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /requirements/docs Requirements requirementsDocs
// @Summary List review-tool documents
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body domain.DocsInput true "Filters"
// @Success 200 {array} domain.DocRow "ok"
// @Router /requirements/docs [post]
func (h *handlers) docs(r *stdhttp.Request, in domain.DocsInput) (any, error) {
	return h.svc.Docs(r.Context(), in)
}

// swagger:route POST /requirements/units Requirements requirementsUnits
// @Summary List the decomposed units of one document
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body domain.UnitsInput true "Selector"
// @Success 200 {array} domain.UnitRow "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /requirements/units [post]
func (h *handlers) units(r *stdhttp.Request, in domain.UnitsInput) (any, error) {
	return h.svc.Units(r.Context(), in)
}

// swagger:route POST /requirements/unit Requirements requirementsUnit
// @Summary Fetch one requirement unit
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body domain.UnitInput true "Selector"
// @Success 200 {object} domain.UnitRow "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /requirements/unit [post]
func (h *handlers) unit(r *stdhttp.Request, in domain.UnitInput) (any, error) {
	return h.svc.Unit(r.Context(), in)
}

// swagger:route POST /requirements/redecompose Requirements requirementsRedecompose
// @Summary Re-run decomposition for one document
// @Tags Requirements
// @Accept json
// @Produce json
// @Param payload body domain.RedecomposeInput true "Selector"
// @Success 200 {object} domain.RedecomposeOutput "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /requirements/redecompose [post]
func (h *handlers) redecompose(r *stdhttp.Request, in domain.RedecomposeInput) (any, error) {
	return h.svc.Redecompose(r.Context(), in)
}
