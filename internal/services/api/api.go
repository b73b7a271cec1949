// Package api provides the HTTP API for the application
package api

import (
	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/platform/config"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	phttp "github.com/valdezm/policy-auditor/internal/platform/net/http"
	"github.com/valdezm/policy-auditor/internal/platform/store"

	"github.com/valdezm/policy-auditor/internal/modkit"
	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	"github.com/valdezm/policy-auditor/internal/modkit/module"
	"github.com/valdezm/policy-auditor/internal/modkit/swaggerkit"

	covmod "github.com/valdezm/policy-auditor/internal/services/api/coverage/module"
	metamod "github.com/valdezm/policy-auditor/internal/services/api/meta/module"
	polmod "github.com/valdezm/policy-auditor/internal/services/api/policies/module"
	reqmod "github.com/valdezm/policy-auditor/internal/services/api/requirements/module"
	valmod "github.com/valdezm/policy-auditor/internal/services/api/validate/module"
	valsvc "github.com/valdezm/policy-auditor/internal/services/api/validate/service"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// Pack defaults to the embedded rulepack when nil
	Pack *rulepack.Pack

	// ValidatorModel defaults to the disabled model; validate endpoints then
	// serve degraded results instead of 404s
	ValidatorModel valsvc.Model
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	pack := opt.Pack
	if pack == nil {
		pack = rulepack.MustLoad()
	}
	model := opt.ValidatorModel
	if model == nil {
		model = valsvc.Disabled{}
	}

	mods := []module.Module{
		metamod.New(deps),
		polmod.New(deps),
		reqmod.New(deps, reqmod.Options{Decomposer: decompose.New(pack)}),
		covmod.New(deps, covmod.Options{Pack: pack}),
		valmod.New(deps, valmod.Options{Model: model}),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
