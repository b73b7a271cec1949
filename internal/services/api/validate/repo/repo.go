// Package repo provides postgres access for cached validator opinions
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
)

// Repo defines the repository contract for validate
type Repo interface {
	PolicyText(ctx context.Context, code string) (*PolicyText, error)
	UnitByID(ctx context.Context, unitID string) (*UnitRow, error)

	GetCached(ctx context.Context, cacheKey string) (*ValidationRow, error)
	Insert(ctx context.Context, row ValidationRow) error
}

// PolicyText is the policy side of a validation pair
type PolicyText struct {
	Code     string
	Title    string
	FullText string
}

// UnitRow is the requirement side of a validation pair
type UnitRow struct {
	ID          string
	DocCode     string
	Text        string
	References  []string
	Obligations []string
	Timeframes  []string
	Definitions map[string]string
}

// ValidationRow is one stored advisory opinion
type ValidationRow struct {
	ID              string
	CacheKey        string
	PolicyCode      string
	UnitID          string
	Rating          string
	ConfidenceLevel string
	Score           float64
	Reasoning       string
	Excerpts        []string
	Recommendations []string
	Priority        string
	Model           string
	CreatedAt       time.Time
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) PolicyText(ctx context.Context, code string) (*PolicyText, error) {
	const sql = `
select code, title, coalesce(full_text, '')
from policies
where code = $1
`
	rows, err := r.q.Query(ctx, sql, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var p PolicyText
	if err := rows.Scan(&p.Code, &p.Title, &p.FullText); err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (r *queries) UnitByID(ctx context.Context, unitID string) (*UnitRow, error) {
	const sql = `
select id, doc_code, text, refs, obligations, timeframes, definitions
from requirement_units
where id = $1
`
	rows, err := r.q.Query(ctx, sql, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		u                     UnitRow
		refs, obls, tfs, defs []byte
	)
	if err := rows.Scan(&u.ID, &u.DocCode, &u.Text, &refs, &obls, &tfs, &defs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &u.References); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(obls, &u.Obligations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tfs, &u.Timeframes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(defs, &u.Definitions); err != nil {
		return nil, err
	}
	return &u, rows.Err()
}

func (r *queries) GetCached(ctx context.Context, cacheKey string) (*ValidationRow, error) {
	const sql = `
select id::text, cache_key, policy_code, unit_id, rating, confidence_level, score,
reasoning, excerpts, recommendations, priority, model, created_at
from validations
where cache_key = $1
`
	rows, err := r.q.Query(ctx, sql, cacheKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		v              ValidationRow
		excerpts, recs []byte
	)
	if err := rows.Scan(&v.ID, &v.CacheKey, &v.PolicyCode, &v.UnitID, &v.Rating,
		&v.ConfidenceLevel, &v.Score, &v.Reasoning, &excerpts, &recs,
		&v.Priority, &v.Model, &v.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(excerpts, &v.Excerpts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recs, &v.Recommendations); err != nil {
		return nil, err
	}
	return &v, rows.Err()
}

func (r *queries) Insert(ctx context.Context, row ValidationRow) error {
	const sql = `
insert into validations
(id, cache_key, policy_code, unit_id, rating, confidence_level, score,
reasoning, excerpts, recommendations, priority, model, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
on conflict (cache_key) do nothing
`
	excerpts, err := json.Marshal(orEmpty(row.Excerpts))
	if err != nil {
		return err
	}
	recs, err := json.Marshal(orEmpty(row.Recommendations))
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, sql,
		row.ID, row.CacheKey, row.PolicyCode, row.UnitID, row.Rating,
		row.ConfidenceLevel, row.Score, row.Reasoning, excerpts, recs,
		row.Priority, row.Model)
	return err
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
