package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Run(ctx context.Context, in RunInput) (RunOutput, error)
	Summary(ctx context.Context, in SummaryInput) (SummaryOutput, error)
	Assessments(ctx context.Context, in AssessmentsInput) ([]AssessmentRow, error)
	Unit(ctx context.Context, in UnitViewInput) (UnitView, error)
	Policy(ctx context.Context, in PolicyViewInput) ([]PolicyViewRow, error)
	Matrix(ctx context.Context, in MatrixInput) ([]DocSummary, error)
	Review(ctx context.Context, in ReviewInput) (ReviewView, error)
}
