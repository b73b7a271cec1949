package repo

import (
	"context"
	"time"

	"github.com/valdezm/policy-auditor/internal/platform/store"
)

// EventRow is one (unit, policy) pair with non-trivial evidence, emitted to
// the analytics store once per run
type EventRow struct {
	DocCode      string
	UnitID       string
	PolicyCode   string
	CoverageType string
	Confidence   float64
}

// Events is the append-only ClickHouse sink for coverage events. A nil
// receiver or seam writes nowhere, so analytics stay optional
type Events struct {
	ch store.Clickhouse
}

// NewEvents wraps the ClickHouse seam; ch may be nil
func NewEvents(ch store.Clickhouse) *Events { return &Events{ch: ch} }

// WriteBatch appends one row per contributing pair for the given run
func (e *Events) WriteBatch(ctx context.Context, runID string, xs []EventRow) error {
	if e == nil || e.ch == nil || len(xs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(xs))
	for _, x := range xs {
		rows = append(rows, []any{runID, x.DocCode, x.UnitID, x.PolicyCode, x.CoverageType, x.Confidence, now})
	}
	return e.ch.Insert(ctx,
		"coverage_events (run_id, doc_code, unit_id, policy_code, coverage_type, confidence, created_at)",
		rows)
}
