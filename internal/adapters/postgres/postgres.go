// Package postgres implements every relational persistence port defined by
// the internal/* packages, grounded on the teacher's repository-per-entity
// idiom (e.g. components/ledger/internal/adapters/postgres/account/
// account.postgresql.go): a struct wrapping *dbpg.Connection, squirrel for
// query building, database/sql for execution, and pgconn.PgError mapped to
// the typed domain error taxonomy. Unlike the teacher, queries are not
// wrapped in otel spans here; no package in this module starts spans.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// pgErrorCode names the subset of Postgres SQLSTATEs this adapter branches
// on; see https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapPGError turns a constraint violation into the typed domain error
// taxonomy; anything else passes through unwrapped for the caller to log as
// an internal error.
func mapPGError(err error, entityType string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return domain.ConflictError{EntityType: entityType, Reason: pgErr.ConstraintName, Err: pgErr}
	case codeForeignKeyViolation:
		return domain.ValidationError{EntityType: entityType, Reason: "references a row that does not exist", Err: pgErr}
	default:
		return pgErr
	}
}

func db(ctx context.Context, conn *dbpg.Connection) (dbresolver.DB, error) {
	handle, err := conn.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: %w", err)
	}

	return handle, nil
}

func notFound(err error, entityType string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{EntityType: entityType}
	}

	return err
}

// stringArray adapts a []string for pq's ARRAY binding; squirrel/database-sql
// have no native Go-slice-to-Postgres-array support without it.
func stringArray(ss []string) any { return pq.Array(ss) }

func scanStringArray(dst *[]string) any { return pq.Array(dst) }
