// Package module wires validate into the API using modkit
package module

import (
	"net/http"

	modkit "github.com/valdezm/policy-auditor/internal/modkit"
	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	str "github.com/valdezm/policy-auditor/internal/platform/strings"
	valhttp "github.com/valdezm/policy-auditor/internal/services/api/validate/http"
	valrepo "github.com/valdezm/policy-auditor/internal/services/api/validate/repo"
	valsvc "github.com/valdezm/policy-auditor/internal/services/api/validate/service"
)

// Options carry the validate module collaborators
type Options struct {
	Model valsvc.Model
}

// Module implements the validate module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc valsvc.Service
}

// New constructs the validate module
func New(deps modkit.Deps, o Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append(
		[]modkit.Option{modkit.WithName("validate"), modkit.WithPrefix("/validate")}, opts...)...)

	svc := valsvc.New(deps.PG, valrepo.NewPG(), o.Model)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Validate: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		valhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Ports exposes the validate service to other modules
type Ports struct {
	Validate valsvc.Service
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
