package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Postgres reports a statement prepared against an older table definition
// with this code and message.
const (
	codeFeatureNotSupported = "0A000"
	msgCachedPlan           = "cached plan must not change result type"
)

// mapError converts driver errors to the backend error vocabulary. A stale
// prepared statement after a migration is reported as a stale schema cache so
// the store retries it.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeFeatureNotSupported && strings.Contains(pgErr.Message, msgCachedPlan) {
			return &types.BackendError{Code: types.CodeSchemaCacheStale, Message: pgErr.Message}
		}
		return &types.BackendError{Code: pgErr.Code, Message: pgErr.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}
