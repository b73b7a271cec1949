// Package service loads extracted corpus files into the database: policies
// as-is, requirement documents decomposed into scoreable units
package service

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/adapters/corpus"
	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	reqrepo "github.com/valdezm/policy-auditor/internal/services/api/requirements/repo"
	reqsvc "github.com/valdezm/policy-auditor/internal/services/api/requirements/service"
	"github.com/valdezm/policy-auditor/internal/services/ingest/repo"
)

// Result counts one ingestion pass
type Result struct {
	Total    int
	Ingested int
	Skipped  int
	Failed   int
}

// Svc runs corpus ingestion
type Svc struct {
	Repo      repo.Repo
	binder    repokit.Binder[repo.Repo]
	reqBinder repokit.Binder[reqrepo.Repo]
	db        repokit.TxRunner
	dec       *decompose.Decomposer
	loader    *corpus.Loader
}

// New creates a new ingest service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	reqBinder repokit.Binder[reqrepo.Repo],
	dec *decompose.Decomposer,
) *Svc {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	if binder == nil || reqBinder == nil {
		panic("ingest.Service requires non nil Repo binders")
	}
	if dec == nil {
		panic("ingest.Service requires a non nil Decomposer")
	}
	return &Svc{
		Repo:      binder.Bind(db),
		binder:    binder,
		reqBinder: reqBinder,
		db:        db,
		dec:       dec,
		loader:    corpus.New(),
	}
}

// IngestPolicies loads a policy directory. Files whose hash matches the
// stored one are skipped; a failing file is logged and counted, never fatal
func (s *Svc) IngestPolicies(ctx context.Context, dir string) (Result, error) {
	files, stats, err := s.loader.Load(dir)
	if err != nil {
		return Result{}, err
	}
	res := Result{Total: stats.Total, Failed: stats.Failed}

	known, err := s.Repo.PolicyHashes(ctx)
	if err != nil {
		return res, err
	}

	for _, f := range files {
		if known[f.Code] == f.SHA256 {
			res.Skipped++
			continue
		}
		err := s.Repo.UpsertPolicy(ctx, repo.PolicyUpsert{
			Code:     f.Code,
			Title:    f.Title,
			Category: f.Category,
			FullText: f.Text,
			FileHash: f.SHA256,
		})
		if err != nil {
			logger.C(ctx).Warn().Err(err).Str("code", f.Code).Msg("ingest: policy upsert failed")
			res.Failed++
			continue
		}
		res.Ingested++
	}
	return res, nil
}

// IngestRequirements loads a requirement-document directory. Each changed
// document is stored and decomposed into units in one transaction, so a unit
// set never half-replaces its predecessor
func (s *Svc) IngestRequirements(ctx context.Context, dir string) (Result, error) {
	files, stats, err := s.loader.Load(dir)
	if err != nil {
		return Result{}, err
	}
	res := Result{Total: stats.Total, Failed: stats.Failed}

	known, err := s.Repo.DocHashes(ctx)
	if err != nil {
		return res, err
	}

	for _, f := range files {
		if known[f.Code] == f.SHA256 {
			res.Skipped++
			continue
		}
		units := reqsvc.DecomposeDoc(s.dec, f.Code, f.Text)

		err := s.db.Tx(ctx, func(q repokit.RowQuerier) error {
			if err := s.binder.Bind(q).UpsertDoc(ctx, repo.DocUpsert{
				Code:     f.Code,
				Title:    f.Title,
				RawText:  f.Text,
				FileHash: f.SHA256,
			}); err != nil {
				return err
			}
			return s.reqBinder.Bind(q).ReplaceUnits(ctx, f.Code, units)
		})
		if err != nil {
			logger.C(ctx).Warn().Err(err).Str("code", f.Code).Msg("ingest: requirement doc failed")
			res.Failed++
			continue
		}
		res.Ingested++
	}
	return res, nil
}
