package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	List(ctx context.Context, in ListInput) ([]PolicyRow, error)
	Get(ctx context.Context, in GetInput) (PolicyDetail, error)
}
