package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Docs(ctx context.Context, in DocsInput) ([]DocRow, error)
	Units(ctx context.Context, in UnitsInput) ([]UnitRow, error)
	Unit(ctx context.Context, in UnitInput) (UnitRow, error)
	Redecompose(ctx context.Context, in RedecomposeInput) (RedecomposeOutput, error)
}
