// Package module wires policies into the API using modkit
package module

import (
	"net/http"

	modkit "github.com/valdezm/policy-auditor/internal/modkit"
	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	str "github.com/valdezm/policy-auditor/internal/platform/strings"
	polhttp "github.com/valdezm/policy-auditor/internal/services/api/policies/http"
	polrepo "github.com/valdezm/policy-auditor/internal/services/api/policies/repo"
	polsvc "github.com/valdezm/policy-auditor/internal/services/api/policies/service"
)

// Module implements the policies module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc polsvc.Service
}

// New constructs the policies module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("policies"), modkit.WithPrefix("/policies")}, opts...)...)

	svc := polsvc.New(deps.PG, polrepo.NewPG())

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Policies: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		polhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Ports exposes the policies service to other modules
type Ports struct {
	Policies polsvc.Service
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
