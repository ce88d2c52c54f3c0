package gateway

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// identPattern guards table and column names; the query builder is generic,
// so identifiers never reach the SQL text unchecked.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresGateway talks to the provider's Postgres directly.
type PostgresGateway struct {
	db *sqlx.DB
}

// NewPostgres creates a gateway over an existing connection pool.
func NewPostgres(db *sqlx.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

func (g *PostgresGateway) Select(ctx context.Context, q Query, dest interface{}) error {
	query, args, err := buildSelect(q)
	if err != nil {
		return err
	}
	query = g.db.Rebind(query)
	if err := g.db.SelectContext(ctx, dest, query, args...); err != nil {
		return mapPQError(err)
	}
	return nil
}

func (g *PostgresGateway) Insert(ctx context.Context, table string, row Row, returned interface{}) error {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return err
	}
	query = g.db.Rebind(query)
	if returned == nil {
		if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
			return mapPQError(err)
		}
		return nil
	}
	if err := g.db.QueryRowxContext(ctx, query, args...).StructScan(returned); err != nil {
		return mapPQError(err)
	}
	return nil
}

func (g *PostgresGateway) Delete(ctx context.Context, table string, filters ...Filter) error {
	query, args, err := buildDelete(table, filters)
	if err != nil {
		return err
	}
	query = g.db.Rebind(query)
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return mapPQError(err)
	}
	return nil
}

func (g *PostgresGateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func buildSelect(q Query) (string, []interface{}, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(q.Table)

	args, err := writeWhere(&sb, q.Filters)
	if err != nil {
		return "", nil, err
	}

	if len(q.OrderBy) > 0 {
		for _, col := range q.OrderBy {
			if err := checkIdent(col); err != nil {
				return "", nil, err
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.OrderBy, ", "))
	}

	return sqlx.In(sb.String(), args...)
}

func buildInsert(table string, row Row) (string, []interface{}, error) {
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("gateway: insert into %s with no columns", table)
	}

	// Sorted columns keep the statement deterministic
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]interface{}, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		if err := checkIdent(col); err != nil {
			return "", nil, err
		}
		args = append(args, row[col])
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

func buildDelete(table string, filters []Filter) (string, []interface{}, error) {
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("gateway: delete from %s without filters", table)
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)

	args, err := writeWhere(&sb, filters)
	if err != nil {
		return "", nil, err
	}
	return sqlx.In(sb.String(), args...)
}

func writeWhere(sb *strings.Builder, filters []Filter) ([]interface{}, error) {
	var args []interface{}
	for i, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		switch f.Op {
		case OpEq:
			sb.WriteString(f.Column)
			sb.WriteString(" = ?")
			args = append(args, f.Value)
		case OpIn:
			sb.WriteString(f.Column)
			sb.WriteString(" IN (?)")
			args = append(args, f.Values)
		default:
			return nil, fmt.Errorf("gateway: unsupported operator %q", f.Op)
		}
	}
	return args, nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("gateway: invalid identifier %q", name)
	}
	return nil
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	return err
}
