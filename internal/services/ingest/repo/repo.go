// Package repo provides postgres access for corpus ingestion
package repo

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
)

// Repo defines the repository contract for ingest
type Repo interface {
	PolicyHashes(ctx context.Context) (map[string]string, error)
	UpsertPolicy(ctx context.Context, p PolicyUpsert) error

	DocHashes(ctx context.Context) (map[string]string, error)
	UpsertDoc(ctx context.Context, d DocUpsert) error
}

// PolicyUpsert is one policy document to insert or refresh
type PolicyUpsert struct {
	Code     string
	Title    string
	Category string
	FullText string
	FileHash string
}

// DocUpsert is one requirement document to insert or refresh
type DocUpsert struct {
	Code     string
	Title    string
	RawText  string
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

func (r *queries) PolicyHashes(ctx context.Context) (map[string]string, error) {
	return r.hashes(ctx, `select code, coalesce(file_hash, '') from policies`)
}

func (r *queries) DocHashes(ctx context.Context) (map[string]string, error) {
	return r.hashes(ctx, `select code, coalesce(file_hash, '') from requirement_docs`)
}

func (r *queries) hashes(ctx context.Context, sql string) (map[string]string, error) {
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var code, hash string
		if err := rows.Scan(&code, &hash); err != nil {
			return nil, err
		}
		out[code] = hash
	}
	return out, rows.Err()
}

func (r *queries) UpsertPolicy(ctx context.Context, p PolicyUpsert) error {
	const sql = `
insert into policies (code, title, category, full_text, file_hash, status, created_at)
values ($1, $2, nullif($3, ''), $4, $5, 'active', now())
on conflict (code) do update set
	title = excluded.title,
	category = excluded.category,
	full_text = excluded.full_text,
	file_hash = excluded.file_hash
`
	_, err := r.q.Exec(ctx, sql, p.Code, p.Title, p.Category, p.FullText, p.FileHash)
	return err
}

func (r *queries) UpsertDoc(ctx context.Context, d DocUpsert) error {
	const sql = `
insert into requirement_docs (code, title, raw_text, file_hash, created_at)
values ($1, $2, $3, $4, now())
on conflict (code) do update set
	title = excluded.title,
	raw_text = excluded.raw_text,
	file_hash = excluded.file_hash
`
	_, err := r.q.Exec(ctx, sql, d.Code, d.Title, d.RawText, d.FileHash)
	return err
}
