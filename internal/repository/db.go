package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	uniqueViolation    = "23505"
	invalidTextLiteral = "22P02"
)

// DBTX is the subset of a pgx pool used by repositories. *pgxpool.Pool
// satisfies it, as does pgxmock in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Page describes offset pagination for list queries.
type Page struct {
	Limit  int
	Offset int
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case invalidTextLiteral:
			// malformed uuid in a lookup
			return ErrNotFound
		}
	}
	return err
}

// whereBuilder accumulates positional SQL predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

func (w *whereBuilder) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// setBuilder accumulates SET assignments for an UPDATE statement.
type setBuilder struct {
	sets []string
	args []any
}

func (s *setBuilder) set(column string, value any) {
	s.args = append(s.args, value)
	s.sets = append(s.sets, fmt.Sprintf("%s=$%d", column, len(s.args)))
}

// setOnce writes value only while the column is still NULL.
func (s *setBuilder) setOnce(column string, value any) {
	s.args = append(s.args, value)
	s.sets = append(s.sets, fmt.Sprintf("%s=COALESCE(%s, $%d)", column, column, len(s.args)))
}

// appendJSON pushes encoded JSON array elements onto a JSONB array column in place.
func (s *setBuilder) appendJSON(column string, encoded string) {
	s.args = append(s.args, encoded)
	s.sets = append(s.sets, fmt.Sprintf("%s=%s || $%d::jsonb", column, column, len(s.args)))
}

func (s *setBuilder) empty() bool {
	return len(s.sets) == 0
}

func (s *setBuilder) statement(table, id string) (string, []any) {
	args := append(s.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at=NOW() WHERE id=$%d",
		table, strings.Join(s.sets, ", "), len(args))
	return query, args
}

func orderDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
