// Package module wires coverage into the API using modkit
package module

import (
	"net/http"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	modkit "github.com/valdezm/policy-auditor/internal/modkit"
	"github.com/valdezm/policy-auditor/internal/modkit/httpkit"
	str "github.com/valdezm/policy-auditor/internal/platform/strings"
	covhttp "github.com/valdezm/policy-auditor/internal/services/api/coverage/http"
	covrepo "github.com/valdezm/policy-auditor/internal/services/api/coverage/repo"
	covsvc "github.com/valdezm/policy-auditor/internal/services/api/coverage/service"
)

// Options carry the coverage module collaborators
type Options struct {
	Pack *rulepack.Pack
}

// Module implements the coverage module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc covsvc.Service
}

// New constructs the coverage module
func New(deps modkit.Deps, o Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append(
		[]modkit.Option{modkit.WithName("coverage"), modkit.WithPrefix("/coverage")}, opts...)...)

	svc := covsvc.New(deps.PG, covrepo.NewPG(), o.Pack, deps.CH)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Coverage: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		covhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Ports exposes the coverage service to other modules
type Ports struct {
	Coverage covsvc.Service
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
