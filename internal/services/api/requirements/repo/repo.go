// Package repo provides postgres access for requirement documents and units
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valdezm/policy-auditor/internal/modkit/repokit"
)

// Repo defines the repository contract for requirements
type Repo interface {
	Docs(ctx context.Context, limit int) ([]DocRow, error)
	DocText(ctx context.Context, code string) (*DocTextRow, error)
	UnitsByDoc(ctx context.Context, docCode string) ([]UnitRow, error)
	UnitByID(ctx context.Context, unitID string) (*UnitRow, error)
	AllUnits(ctx context.Context) ([]UnitRow, error)
	ReplaceUnits(ctx context.Context, docCode string, units []UnitRow) error
}

// DocRow represents a requirement document row
type DocRow struct {
	Code      string
	Title     string
	UnitCount int
	CreatedAt string
}

// DocTextRow carries one document's stored raw text
type DocTextRow struct {
	Code    string
	Title   string
	RawText string
}

// UnitRow represents a decomposed requirement unit row. The extracted
// collections live in jsonb columns
type UnitRow struct {
	ID           string
	DocCode      string
	SectionLabel string
	Text         string
	References   []string
	Obligations  []string
	Timeframes   []string
	Definitions  map[string]string
	Position     int
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

func (r *queries) Docs(ctx context.Context, limit int) ([]DocRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const sql = `
select d.code, d.title, count(u.id), d.created_at::text
from requirement_docs d
left join requirement_units u on u.doc_code = d.code
group by d.code, d.title, d.created_at
order by d.code
limit $1
`
	rows, err := r.q.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocRow
	for rows.Next() {
		var d DocRow
		if err := rows.Scan(&d.Code, &d.Title, &d.UnitCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *queries) DocText(ctx context.Context, code string) (*DocTextRow, error) {
	const sql = `select code, title, coalesce(raw_text, '') from requirement_docs where code = $1`
	rows, err := r.q.Query(ctx, sql, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var d DocTextRow
	if err := rows.Scan(&d.Code, &d.Title, &d.RawText); err != nil {
		return nil, err
	}
	return &d, rows.Err()
}

const unitCols = `id, doc_code, section_label, text, refs, obligations, timeframes, definitions, position`

func (r *queries) UnitsByDoc(ctx context.Context, docCode string) ([]UnitRow, error) {
	sql := `select ` + unitCols + ` from requirement_units where doc_code = $1 order by position`
	rows, err := r.q.Query(ctx, sql, docCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

func (r *queries) UnitByID(ctx context.Context, unitID string) (*UnitRow, error) {
	sql := `select ` + unitCols + ` from requirement_units where id = $1`
	rows, err := r.q.Query(ctx, sql, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	us, err := scanUnits(rows)
	if err != nil || len(us) == 0 {
		return nil, err
	}
	return &us[0], nil
}

func (r *queries) AllUnits(ctx context.Context) ([]UnitRow, error) {
	sql := `select ` + unitCols + ` from requirement_units order by doc_code, position`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUnits(rows)
}

// ReplaceUnits swaps a document's unit set atomically; re-decomposition
// replaces, never appends
func (r *queries) ReplaceUnits(ctx context.Context, docCode string, units []UnitRow) error {
	if _, err := r.q.Exec(ctx, `delete from requirement_units where doc_code = $1`, docCode); err != nil {
		return err
	}
	if len(units) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`insert into requirement_units
		(id, doc_code, section_label, text, refs, obligations, timeframes, definitions, position) values `)

	args := make([]any, 0, len(units)*9)
	for i, u := range units {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*9 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)

		refs, err := json.Marshal(orEmpty(u.References))
		if err != nil {
			return err
		}
		obls, err := json.Marshal(orEmpty(u.Obligations))
		if err != nil {
			return err
		}
		tfs, err := json.Marshal(orEmpty(u.Timeframes))
		if err != nil {
			return err
		}
		defs, err := json.Marshal(orEmptyMap(u.Definitions))
		if err != nil {
			return err
		}
		args = append(args, u.ID, u.DocCode, u.SectionLabel, u.Text, refs, obls, tfs, defs, u.Position)
	}
	_, err := r.q.Exec(ctx, sb.String(), args...)
	return err
}

func scanUnits(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]UnitRow, error) {
	var out []UnitRow
	for rows.Next() {
		var (
			u                     UnitRow
			refs, obls, tfs, defs []byte
		)
		if err := rows.Scan(&u.ID, &u.DocCode, &u.SectionLabel, &u.Text, &refs, &obls, &tfs, &defs, &u.Position); err != nil {
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
		out = append(out, u)
	}
	return out, rows.Err()
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
