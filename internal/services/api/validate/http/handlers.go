// Package http provides http transport for validate
package http

import (
	stdhttp "net/http"

	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	"github.com/valdezm/policy-auditor/internal/services/api/validate/domain"
	svc "github.com/valdezm/policy-auditor/internal/services/api/validate/service"
)

// Register mounts validate endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.ValidateInput](r, "/", h.validate)
	httpkit.PostJSON[domain.BatchInput](r, "/batch", h.batch)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /validate Validate validatePair
// @Summary Advisory model opinion for one (policy, unit) pair
// @Tags Validate
// @Accept json
// @Produce json
// @Param payload body domain.ValidateInput true "Pair selector"
// @Success 200 {object} domain.ValidationView "ok"
// @Failure 404 {object} httpkit.Envelope "policy or unit not found"
// @Router /validate [post]
func (h *handlers) validate(r *stdhttp.Request, in domain.ValidateInput) (any, error) {
	return h.svc.Validate(r.Context(), in)
}

// swagger:route POST /validate/batch Validate validateBatch
// @Summary Advisory opinions for one policy against many units
// @Tags Validate
// @Accept json
// @Produce json
// @Param payload body domain.BatchInput true "Batch selector"
// @Success 200 {object} domain.BatchOutput "ok"
// @Failure 404 {object} httpkit.Envelope "policy not found"
// @Router /validate/batch [post]
func (h *handlers) batch(r *stdhttp.Request, in domain.BatchInput) (any, error) {
	return h.svc.ValidateBatch(r.Context(), in)
}
