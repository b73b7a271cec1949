package service

import (
	"context"
	"time"

	"github.com/valdezm/policy-auditor/internal/core/analyzer"
	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/evidence"
	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
	perr "github.com/valdezm/policy-auditor/internal/platform/errors"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/domain"
	"github.com/valdezm/policy-auditor/internal/services/api/coverage/repo"

	"github.com/google/uuid"
)

// Run scores every persisted requirement unit against every active policy
// and, unless DryRun is set, persists the run and its assessments atomically.
// The analytics sink is written best effort after the commit; its failure
// never fails the run
func (s *Svc) Run(ctx context.Context, in domain.RunInput) (domain.RunOutput, error) {
	started := time.Now()

	unitRows, err := s.Repo.CorpusUnits(ctx)
	if err != nil {
		return domain.RunOutput{}, err
	}
	if len(unitRows) == 0 {
		return domain.RunOutput{}, perr.NotFoundf("no requirement units ingested; run ingest first")
	}
	polRows, err := s.Repo.CorpusPolicies(ctx)
	if err != nil {
		return domain.RunOutput{}, err
	}
	if len(polRows) == 0 {
		return domain.RunOutput{}, perr.NotFoundf("no policies ingested; run ingest first")
	}

	units := make([]decompose.Unit, 0, len(unitRows))
	for _, r := range unitRows {
		units = append(units, decompose.Unit{
			ID:           r.ID,
			ParentCode:   r.DocCode,
			SectionLabel: r.SectionLabel,
			Text:         r.Text,
			References:   r.References,
			Obligations:  r.Obligations,
			Timeframes:   r.Timeframes,
			Definitions:  r.Definitions,
		})
	}
	policies := make([]evidence.Policy, 0, len(polRows))
	for _, p := range polRows {
		policies = append(policies, evidence.NewPolicy(p.Code, p.Title, p.FullText))
	}

	rep, err := s.an.AnalyzeUnits(ctx, units, policies, analyzer.Options{Workers: in.Workers})
	if err != nil {
		return domain.RunOutput{}, err
	}

	runID := uuid.NewString()
	writes, events := persistForms(rep.Assessments)

	if !in.DryRun {
		run := repo.RunRow{
			ID:              runID,
			StartedAt:       started.UTC(),
			FinishedAt:      time.Now().UTC(),
			PackFingerprint: s.pack.Fingerprint,
			PolicyCount:     len(policies),
			UnitCount:       len(units),
		}
		err = s.db.Tx(ctx, func(q repokit.RowQuerier) error {
			r := s.binder.Bind(q)
			if err := r.InsertRun(ctx, run); err != nil {
				return err
			}
			return r.InsertAssessments(ctx, runID, writes)
		})
		if err != nil {
			return domain.RunOutput{}, err
		}

		if err := s.events.WriteBatch(ctx, runID, events); err != nil {
			logger.C(ctx).Warn().Err(err).
				Str("run_id", runID).
				Int("events", len(events)).
				Msg("coverage: analytics sink write failed")
		}
	}

	out := domain.RunOutput{
		RunID:           runID,
		PackFingerprint: s.pack.Fingerprint,
		PolicyCount:     len(policies),
		UnitCount:       len(units),
		DurationMs:      time.Since(started).Milliseconds(),
		DryRun:          in.DryRun,
		Summary:         summaryDTO(rep.Summary),
	}
	for _, ds := range rep.ByDoc {
		out.ByDoc = append(out.ByDoc, domain.DocSummary{DocCode: ds.DocCode, Counts: summaryDTO(ds.Summary)})
	}
	return out, nil
}

// persistForms flattens analyzer assessments into the storage row shape and
// the per-pair analytics events
func persistForms(as []analyzer.Assessment) ([]repo.AssessmentWrite, []repo.EventRow) {
	writes := make([]repo.AssessmentWrite, 0, len(as))
	var events []repo.EventRow
	for _, a := range as {
		w := repo.AssessmentWrite{
			UnitID:       a.Unit.ID,
			DocCode:      a.Unit.ParentCode,
			CoverageType: a.Type.String(),
			Confidence:   a.Confidence,
			Gaps:         a.Gaps,
			NeedsReview:  a.NeedsReview,
			BestPolicy:   a.BestPolicy,
		}
		for _, m := range a.Matches {
			w.Matching = append(w.Matching, repo.MatchJSON{
				PolicyCode:   m.PolicyCode,
				PolicyTitle:  m.PolicyTitle,
				CoverageType: m.Type.String(),
				Confidence:   m.Confidence,
			})
			events = append(events, repo.EventRow{
				DocCode:      a.Unit.ParentCode,
				UnitID:       a.Unit.ID,
				PolicyCode:   m.PolicyCode,
				CoverageType: m.Type.String(),
				Confidence:   m.Confidence,
			})
		}
		for _, e := range a.Excerpts {
			w.Excerpts = append(w.Excerpts, repo.ExcerptJSON{
				PolicyCode:      e.PolicyCode,
				MatchedText:     e.MatchedText,
				Start:           e.Start,
				End:             e.End,
				Context:         e.Context,
				Relevance:       e.Relevance,
				MatchedElements: e.MatchedElements,
			})
		}
		writes = append(writes, w)
	}
	return writes, events
}

func summaryDTO(s analyzer.Summary) domain.SummaryCounts {
	return domain.SummaryCounts{
		Total:             s.Total,
		FullCompliance:    s.FullCompliance,
		PartialCompliance: s.PartialCompliance,
		ReferenceOnly:     s.ReferenceOnly,
		Related:           s.Related,
		NoCoverage:        s.NoCoverage,
		NeedsReview:       s.NeedsReview,
		CoveragePercent:   s.CoveragePercent(),
	}
}
