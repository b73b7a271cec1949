// Package http provides http transport for policies
package http

import (
	stdhttp "net/http"

	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	"github.com/valdezm/policy-auditor/internal/services/api/policies/domain"
	svc "github.com/valdezm/policy-auditor/internal/services/api/policies/service"
)

// Register mounts policies endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.ListInput](r, "/list", h.list)
	httpkit.PostJSON[domain.GetInput](r, "/get", h.get)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /policies/list Policies policiesList
// @Summary List policy corpus entries
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body domain.ListInput true "Filters"
// @Success 200 {array} domain.PolicyRow "ok"
// @Router /policies/list [post]
func (h *handlers) list(r *stdhttp.Request, in domain.ListInput) (any, error) {
	return h.svc.List(r.Context(), in)
}

// swagger:route POST /policies/get Policies policiesGet
// @Summary Fetch one policy with extracted text
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body domain.GetInput true "Selector"
// @Success 200 {object} domain.PolicyDetail "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /policies/get [post]
func (h *handlers) get(r *stdhttp.Request, in domain.GetInput) (any, error) {
	return h.svc.Get(r.Context(), in)
}
