// Package postgres implements types.Backend over a PostgreSQL database
// reached through a pgx connection pool. Each logical table is a real table
// whose columns are the record keys.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Pool tuning.
const (
	maxConns        = 20
	minConns        = 2
	maxConnLifetime = time.Hour
	maxConnIdleTime = 15 * time.Minute
)

// querier is the subset of *pgxpool.Pool the backend uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Backend implements types.Backend on PostgreSQL.
type Backend struct {
	db   querier
	pool *pgxpool.Pool
	log  logging.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Backend, error) {
	if dsn == "" {
		return nil, types.ErrDSNEmpty
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = maxConnLifetime
	cfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if log == nil {
		log = logging.Nop()
	}
	b := &Backend{db: pool, pool: pool, log: log.WithFields(logging.Fields{"component": "postgres"})}
	b.log.Info("backend connected", logging.Fields{"host": cfg.ConnConfig.Host, "database": cfg.ConnConfig.Database})
	return b, nil
}

// Close releases the pool.
func (b *Backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// Select returns the rows of table matching q.
func (b *Backend) Select(ctx context.Context, table string, q types.Query) ([]types.Record, error) {
	query, args := buildSelect(table, q)
	rows, err := b.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("select "+table, err)
	}
	defer rows.Close()

	results := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapError("select "+table, err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("select "+table, err)
	}
	return results, nil
}

// Insert inserts row and returns it as stored, including defaulted columns.
func (b *Backend) Insert(ctx context.Context, table string, row types.Record) (types.Record, error) {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(b.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("insert "+table, err)
	}
	return rec, nil
}

// Update sets the columns of patch on row id.
// Returns ErrNotFound if the row does not exist.
func (b *Backend) Update(ctx context.Context, table, id string, patch types.Record) (types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	query, args, err := buildUpdate(table, id, patch)
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(b.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(fmt.Sprintf("update %s %s", table, id), err)
	}
	return rec, nil
}

// Delete removes the rows with the given ids.
func (b *Backend) Delete(ctx context.Context, table string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args := buildDelete(table, ids)
	tag, err := b.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError("delete "+table, err)
	}
	b.log.Debug("rows deleted", logging.Fields{"table": table, "count": tag.RowsAffected()})
	return nil
}

func scanRecord(row pgx.Row) (types.Record, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	rec := types.Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding row: %w", err)
	}
	return rec, nil
}
