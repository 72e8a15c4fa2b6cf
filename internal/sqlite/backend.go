// Package sqlite implements the embedded storage backend: a JSON document
// store for every logical table plus a bucketed object store for media,
// both kept in one SQLite database file under the data directory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// DBFile is the database file name inside DataDir.
const DBFile = "propsync.db"

// Backend error codes, aligned with the codes a relational backend reports.
const (
	CodeUniqueViolation = "23505"
	CodeUndefinedColumn = "42703"
)

// timeFormat has fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// reserved columns are stored outside the JSON document.
var reserved = []string{types.ColumnID, "created_at", "updated_at"}

// identifier limits the column names that may appear in SQL text.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// WithPublicBaseURL sets the prefix of URLs returned by PublicURL.
func WithPublicBaseURL(base string) Option {
	return func(b *Backend) {
		b.publicBase = strings.TrimRight(base, "/")
	}
}

// Backend implements types.Backend and types.ObjectStorage on SQLite.
type Backend struct {
	mu         sync.RWMutex
	attached   bool
	config     types.Config
	db         *sql.DB
	log        logging.Logger
	publicBase string
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: logging.Nop(), publicBase: DefaultPublicBaseURL}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithFields(logging.Fields{"component": "sqlite"})
	return b
}

// Attach opens the database in config.DataDir, creating the directory,
// schema, default buckets and the country catalog on first use.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dsn := filepath.Join(dataDir, DBFile) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := seedBuckets(db, defaultBuckets); err != nil {
		db.Close()
		return fmt.Errorf("seeding buckets: %w", err)
	}
	if err := seedCountries(db); err != nil {
		db.Close()
		return fmt.Errorf("seeding countries: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	b.log.Info("backend attached", logging.Fields{"data_dir": dataDir})
	return nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// conn returns the open database or ErrBackendDetached. The caller must
// hold b.mu.
func (b *Backend) conn() (*sql.DB, error) {
	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.db, nil
}

// generateUUID generates a new UUID v7 for row ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// columnExpr returns the SQL expression reading column col.
func columnExpr(col string) (string, error) {
	switch col {
	case types.ColumnID, "created_at", "updated_at":
		return col, nil
	}
	if !identifier.MatchString(col) {
		return "", &types.BackendError{Code: CodeUndefinedColumn, Message: fmt.Sprintf("invalid column %q", col)}
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", col), nil
}

// sqlArg converts a Go value to the form json_extract compares against.
func sqlArg(v any) any {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return v
	}
}

// Select returns the rows of table matching q. Results default to
// created_at order, oldest first.
func (b *Backend) Select(ctx context.Context, table string, q types.Query) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	query := "SELECT id, data, created_at, updated_at FROM records"
	conditions := []string{"tbl = ?"}
	args := []any{table}

	for col, val := range q.Eq {
		expr, err := columnExpr(col)
		if err != nil {
			return nil, err
		}
		if val == nil {
			conditions = append(conditions, expr+" IS NULL")
			continue
		}
		conditions = append(conditions, expr+" = ?")
		args = append(args, sqlArg(val))
	}
	query += " WHERE " + strings.Join(conditions, " AND ")

	order := "created_at"
	if q.OrderBy != "" {
		if order, err = columnExpr(q.OrderBy); err != nil {
			return nil, err
		}
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", order, dir, dir)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", table, err)
	}
	defer rows.Close()

	results := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (types.Record, error) {
	var id, data, createdAt, updatedAt string
	if err := s.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec := types.Record{}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding row %s: %w", id, err)
	}
	rec[types.ColumnID] = id
	rec["created_at"] = createdAt
	rec["updated_at"] = updatedAt
	return rec, nil
}

// document returns row without the reserved columns, encoded as JSON.
func document(row types.Record) (string, error) {
	doc := row.Clone()
	for _, k := range reserved {
		delete(doc, k)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding row: %w", err)
	}
	return string(data), nil
}

// Insert stores row under its id, generating a UUID v7 when the row has
// none. A duplicate id is reported as a BackendError with code 23505.
func (b *Backend) Insert(ctx context.Context, table string, row types.Record) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	id := row.ID()
	if id == "" {
		id = generateUUID()
	}
	data, err := document(row)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(timeFormat)

	_, err = db.ExecContext(ctx,
		"INSERT INTO records (tbl, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		table, id, data, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, &types.BackendError{
				Code:    CodeUniqueViolation,
				Message: fmt.Sprintf("duplicate key value violates unique constraint: %s %s", table, id),
			}
		}
		return nil, fmt.Errorf("inserting into %s: %w", table, err)
	}
	return b.getLocked(ctx, db, table, id)
}

// Update merges patch into the stored document. Keys present in patch
// overwrite, including null values.
// Returns ErrNotFound if the row does not exist.
func (b *Backend) Update(ctx context.Context, table, id string, patch types.Record) (types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, "SELECT data FROM records WHERE tbl = ? AND id = ?", table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", table, id, err)
	}

	current := types.Record{}
	if err := json.Unmarshal([]byte(data), &current); err != nil {
		return nil, fmt.Errorf("decoding row %s: %w", id, err)
	}
	current.Merge(patch)
	merged, err := document(current)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET data = ?, updated_at = ? WHERE tbl = ? AND id = ?",
		merged, now, table, id,
	); err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return b.getLocked(ctx, db, table, id)
}

// Delete removes the rows with the given ids. Missing ids are ignored.
func (b *Backend) Delete(ctx context.Context, table string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return err
	}

	placeholders := make([]string, len(ids))
	args := []any{table}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	_, err = db.ExecContext(ctx,
		"DELETE FROM records WHERE tbl = ? AND id IN ("+strings.Join(placeholders, ",")+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// Count returns the number of rows in table.
func (b *Backend) Count(ctx context.Context, table string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE tbl = ?", table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func (b *Backend) getLocked(ctx context.Context, db *sql.DB, table, id string) (types.Record, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, data, created_at, updated_at FROM records WHERE tbl = ? AND id = ?", table, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	return rec, err
}
