// Package service contains requirements workflows
package service

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/services/api/requirements/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/requirements/repo"
)

// Service defines the service contract for requirements
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	dec    *decompose.Decomposer
}

// New creates a new requirements service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], dec *decompose.Decomposer) *Svc {
	if db == nil {
		panic("requirements.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("requirements.Service requires a non nil Repo binder")
	}
	if dec == nil {
		panic("requirements.Service requires a non nil Decomposer")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, dec: dec}
}

// Docs lists review-tool documents with unit counts
func (s *Svc) Docs(ctx context.Context, in domain.DocsInput) ([]domain.DocRow, error) {
	rows, err := s.Repo.Docs(ctx, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DocRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.DocRow{Code: r.Code, Title: r.Title, UnitCount: r.UnitCount, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// Units lists the decomposed units of one document
func (s *Svc) Units(ctx context.Context, in domain.UnitsInput) ([]domain.UnitRow, error) {
	doc, err := s.Repo.DocText(ctx, in.DocCode)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, perr.NotFoundf("requirement document %q not found", in.DocCode)
	}
	rows, err := s.Repo.UnitsByDoc(ctx, in.DocCode)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UnitRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, UnitDTO(r))
	}
	return out, nil
}

// Unit fetches one unit by id
func (s *Svc) Unit(ctx context.Context, in domain.UnitInput) (domain.UnitRow, error) {
	row, err := s.Repo.UnitByID(ctx, in.UnitID)
	if err != nil {
		return domain.UnitRow{}, err
	}
	if row == nil {
		return domain.UnitRow{}, perr.NotFoundf("requirement unit %q not found", in.UnitID)
	}
	return UnitDTO(*row), nil
}

// Redecompose re-runs decomposition for one document from its stored raw
// text and atomically replaces the persisted unit set
func (s *Svc) Redecompose(ctx context.Context, in domain.RedecomposeInput) (domain.RedecomposeOutput, error) {
	doc, err := s.Repo.DocText(ctx, in.DocCode)
	if err != nil {
		return domain.RedecomposeOutput{}, err
	}
	if doc == nil {
		return domain.RedecomposeOutput{}, perr.NotFoundf("requirement document %q not found", in.DocCode)
	}

	units := DecomposeDoc(s.dec, doc.Code, doc.RawText)

	err = s.db.Tx(ctx, func(q repokit.RowQuerier) error {
		return s.binder.Bind(q).ReplaceUnits(ctx, doc.Code, units)
	})
	if err != nil {
		return domain.RedecomposeOutput{}, err
	}
	return domain.RedecomposeOutput{DocCode: doc.Code, UnitCount: len(units)}, nil
}

// DecomposeDoc turns a stored raw document into persistable unit rows. A
// parseable review-tool checklist yields one unit per question; anything
// else falls back to the single synthetic unit
func DecomposeDoc(dec *decompose.Decomposer, docCode, rawText string) []repo.UnitRow {
	var units []decompose.Unit
	if rd := dec.ParseReviewDoc(rawText); len(rd.Criteria) > 0 {
		units = dec.DecomposeCriteria(rd.AsCriteria(), docCode)
	} else {
		units = dec.Decompose(rawText, docCode)
	}

	rows := make([]repo.UnitRow, 0, len(units))
	for i, u := range units {
		rows = append(rows, repo.UnitRow{
			ID:           u.ID,
			DocCode:      u.ParentCode,
			SectionLabel: u.SectionLabel,
			Text:         u.Text,
			References:   u.References,
			Obligations:  u.Obligations,
			Timeframes:   u.Timeframes,
			Definitions:  u.Definitions,
			Position:     i + 1,
		})
	}
	return rows
}

// UnitDTO converts a persisted unit row to its wire form
func UnitDTO(r repo.UnitRow) domain.UnitRow {
	return domain.UnitRow{
		ID:           r.ID,
		DocCode:      r.DocCode,
		SectionLabel: r.SectionLabel,
		Text:         r.Text,
		References:   r.References,
		Obligations:  r.Obligations,
		Timeframes:   r.Timeframes,
		Definitions:  r.Definitions,
		Position:     r.Position,
	}
}
