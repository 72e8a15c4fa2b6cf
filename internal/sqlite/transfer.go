package sqlite

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

//go:embed record.schema.json
var recordSchemaJSON string

const recordSchemaURL = "record.schema.json"

var recordSchema = compileRecordSchema()

func compileRecordSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchemaJSON)); err != nil {
		panic(fmt.Sprintf("adding record schema: %v", err))
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compiling record schema: %v", err))
	}
	return schema
}

// ImportReport counts the outcome of ImportJSONL.
type ImportReport struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportJSONL loads raw records from a JSONL file into table. Lines that are
// not JSON objects with a string id are skipped. A record whose id already
// exists replaces the stored document. All accepted lines are written in one
// transaction.
func (b *Backend) ImportJSONL(ctx context.Context, table, path string) (ImportReport, error) {
	var report ImportReport
	lines, err := readJSONL(path)
	if err != nil {
		return report, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.conn()
	if err != nil {
		return report, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	log := b.log.WithFields(logging.Fields{"table": table, "file": path})
	now := time.Now().UTC().Format(timeFormat)

	for i, line := range lines {
		if line == nil {
			log.Debug("skipping malformed line", logging.Fields{"line": i + 1})
			report.Skipped++
			continue
		}
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			report.Skipped++
			continue
		}
		if err := recordSchema.Validate(v); err != nil {
			log.Debug("skipping invalid record", logging.Fields{"line": i + 1, "error": err.Error()})
			report.Skipped++
			continue
		}

		rec := types.Record(v.(map[string]any))
		data, err := document(rec)
		if err != nil {
			return report, err
		}
		createdAt := stampOr(rec["created_at"], now)
		updatedAt := stampOr(rec["updated_at"], createdAt)

		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (tbl, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(tbl, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			table, rec.ID(), data, createdAt, updatedAt,
		)
		if err != nil {
			return report, fmt.Errorf("importing line %d: %w", i+1, err)
		}
		report.Imported++
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("committing import transaction: %w", err)
	}
	log.Info("import finished", logging.Fields{"imported": report.Imported, "skipped": report.Skipped})
	return report, nil
}

// stampOr returns v as a timestamp string when it parses, otherwise def.
func stampOr(v any, def string) string {
	s, ok := v.(string)
	if !ok {
		return def
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return def
	}
	return t.UTC().Format(timeFormat)
}

// ExportJSONL writes every row of table to path, oldest first, one JSON
// object per line. The file is replaced atomically. Returns the number of
// rows written.
func (b *Backend) ExportJSONL(ctx context.Context, table, path string) (int, error) {
	rows, err := b.Select(ctx, table, types.Query{})
	if err != nil {
		return 0, err
	}
	lines := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("encoding %s: %w", row.ID(), err)
		}
		lines = append(lines, data)
	}
	if err := writeJSONL(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}
