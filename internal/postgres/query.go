package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// rowAlias names the target row in every statement so RETURNING can
// serialize it with to_jsonb.
const rowAlias = "r"

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// param converts a record value into a query argument. Slices and maps are
// sent as JSON text for jsonb columns.
func param(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding parameter: %w", err)
	}
	return string(data), nil
}

func buildSelect(table string, q types.Query) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT to_jsonb(%s) FROM %s AS %s", rowAlias, ident(table), rowAlias)

	var conditions []string
	var args []any
	for _, col := range sortedKeys(q.Eq) {
		val := q.Eq[col]
		if val == nil {
			conditions = append(conditions, ident(col)+" IS NULL")
			continue
		}
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", ident(col), len(args)))
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", ident(q.OrderBy), dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

func buildInsert(table string, row types.Record) (string, []any, error) {
	if len(row) == 0 {
		return fmt.Sprintf("INSERT INTO %s AS %s DEFAULT VALUES RETURNING to_jsonb(%s)",
			ident(table), rowAlias, rowAlias), nil, nil
	}
	cols := sortedKeys(row)
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		v, err := param(row[col])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col, err)
		}
		names[i] = ident(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}
	query := fmt.Sprintf("INSERT INTO %s AS %s (%s) VALUES (%s) RETURNING to_jsonb(%s)",
		ident(table), rowAlias, strings.Join(names, ", "), strings.Join(placeholders, ", "), rowAlias)
	return query, args, nil
}

// buildUpdate sets every patch column and returns the updated row. The id
// column in patch is ignored.
func buildUpdate(table, id string, patch types.Record) (string, []any, error) {
	var sets []string
	var args []any
	for _, col := range sortedKeys(patch) {
		if col == types.ColumnID {
			continue
		}
		v, err := param(patch[col])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col, err)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(col), len(args)))
	}
	args = append(args, id)
	if len(sets) == 0 {
		query, _ := buildSelect(table, types.Query{Eq: map[string]any{types.ColumnID: id}, Limit: 1})
		return query, []any{id}, nil
	}
	query := fmt.Sprintf("UPDATE %s AS %s SET %s WHERE %s = $%d RETURNING to_jsonb(%s)",
		ident(table), rowAlias, strings.Join(sets, ", "), ident(types.ColumnID), len(args), rowAlias)
	return query, args, nil
}

func buildDelete(table string, ids []string) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", ident(table), ident(types.ColumnID)),
		[]any{ids}
}
