// Package service contains policies workflows
package service

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/services/api/policies/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/policies/repo"
)

// Service defines the service contract for policies
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New creates a new policies service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("policies.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("policies.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// List returns corpus entries matching the filters
func (s *Svc) List(ctx context.Context, in domain.ListInput) ([]domain.PolicyRow, error) {
	rows, err := s.Repo.List(ctx, in.Category, in.Query, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PolicyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowDTO(r))
	}
	return out, nil
}

// Get returns one policy with its extracted text
func (s *Svc) Get(ctx context.Context, in domain.GetInput) (domain.PolicyDetail, error) {
	d, err := s.Repo.Get(ctx, in.Code)
	if err != nil {
		return domain.PolicyDetail{}, err
	}
	if d == nil {
		return domain.PolicyDetail{}, perr.NotFoundf("policy %q not found", in.Code)
	}
	return domain.PolicyDetail{
		PolicyRow: rowDTO(d.Row),
		FullText:  d.FullText,
		FileHash:  d.FileHash,
	}, nil
}

func rowDTO(r repo.Row) domain.PolicyRow {
	return domain.PolicyRow{
		Code:      r.Code,
		Title:     r.Title,
		Category:  r.Category,
		Status:    r.Status,
		TextBytes: r.TextBytes,
		CreatedAt: r.CreatedAt,
	}
}
