// Package repo provides postgres access for policies
package repo

import (
	"context"
	"strings"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
)

// Repo defines the repository contract for policies
type Repo interface {
	List(ctx context.Context, category, query string, limit int) ([]Row, error)
	Get(ctx context.Context, code string) (*DetailRow, error)
}

// Row represents a policy row without text
type Row struct {
	Code      string
	Title     string
	Category  string
	Status    string
	TextBytes int
	CreatedAt string
}

// DetailRow is Row plus the extracted text and provenance hash
type DetailRow struct {
	Row
	FullText string
	FileHash string
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

func (r *queries) List(ctx context.Context, category, query string, limit int) ([]Row, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const sql = `
select code, title, coalesce(category, ''), status, coalesce(length(full_text), 0), created_at::text
from policies
where ($1 = '' or category = $1)
and ($2 = '' or title ilike '%' || $2 || '%' or full_text ilike '%' || $2 || '%')
order by code
limit $3
`
	rows, err := r.q.Query(ctx, sql, category, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var rr Row
		if err := rows.Scan(&rr.Code, &rr.Title, &rr.Category, &rr.Status, &rr.TextBytes, &rr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *queries) Get(ctx context.Context, code string) (*DetailRow, error) {
	const sql = `
select code, title, coalesce(category, ''), status, coalesce(length(full_text), 0), created_at::text,
coalesce(full_text, ''), coalesce(file_hash, '')
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
	var d DetailRow
	if err := rows.Scan(
		&d.Code, &d.Title, &d.Category, &d.Status, &d.TextBytes, &d.CreatedAt,
		&d.FullText, &d.FileHash,
	); err != nil {
		return nil, err
	}
	return &d, rows.Err()
}
