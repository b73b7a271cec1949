// Package ch provides a clickhouse client
package ch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL string

	// ClientName and ClientTag identify this process in server-side logs
	ClientName string
	ClientTag  string
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() []string
	Err() error
	Close() error
}

// CH wraps a native clickhouse connection
type CH struct {
	conn driver.Conn
}

// Open parses the DSN, attaches client identity and dials clickhouse
func Open(ctx context.Context, cfg Config) (*CH, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)

	// The driver dials lazily; connectivity is verified by the store's
	// health check, not here
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	return &CH{conn: conn}, nil
}

// Insert appends rows to a table via a prepared batch. The table string may
// carry an explicit column list, e.g. "events (a, b, c)". Data must be
// [][]any with one inner slice per row in column-list order
func (c *CH) Insert(ctx context.Context, table string, data any) error {
	rows, ok := data.([][]any)
	if !ok {
		return fmt.Errorf("ch: insert expects [][]any, got %T", data)
	}
	if len(rows) == 0 {
		return nil
	}
	if c == nil || c.conn == nil {
		return errors.New("ch: not connected")
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("ch: prepare batch: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("ch: append row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("ch: send batch: %w", err)
	}
	return nil
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("ch: not connected")
	}
	r, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ch: query: %w", err)
	}
	return &nativeRows{r: r}, nil
}

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// nativeRows adapts driver.Rows to ch.Rows
type nativeRows struct {
	r driver.Rows
}

func (n *nativeRows) Next() bool             { return n.r.Next() }
func (n *nativeRows) Scan(dest ...any) error { return n.r.Scan(dest...) }
func (n *nativeRows) Columns() []string      { return n.r.Columns() }
func (n *nativeRows) Err() error             { return n.r.Err() }
func (n *nativeRows) Close() error           { return n.r.Close() }
