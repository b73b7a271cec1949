package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Validate(ctx context.Context, in ValidateInput) (ValidationView, error)
	ValidateBatch(ctx context.Context, in BatchInput) (BatchOutput, error)
}
