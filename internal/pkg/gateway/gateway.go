package gateway

import (
	"context"
	"errors"
)

// Op enumerates the filter operators the remote table API understands.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Filter restricts a Select or Delete to matching rows.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}   // OpEq
	Values []interface{} // OpIn
}

// Eq matches rows where column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In matches rows where column is any of values.
func In(column string, values ...interface{}) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

// Query describes a table read. OrderBy columns are ascending.
type Query struct {
	Table   string
	Filters []Filter
	OrderBy []string
}

// Row is a column-to-value map for inserts.
type Row map[string]interface{}

var (
	// ErrConflict reports a uniqueness violation on insert.
	ErrConflict = errors.New("gateway: conflict")
	// ErrUnavailable reports that the remote store could not be reached.
	ErrUnavailable = errors.New("gateway: unavailable")
)

// Gateway is the generic client for the provider's table API. The three
// tables behind it (properties, rooms, bookings) are owned by the provider;
// this service never reaches them any other way.
type Gateway interface {
	// Select reads matching rows into dest, a pointer to a struct slice.
	Select(ctx context.Context, q Query, dest interface{}) error
	// Insert writes one row and, when returned is non-nil, decodes the
	// stored representation (including generated columns) into it.
	Insert(ctx context.Context, table string, row Row, returned interface{}) error
	// Delete removes matching rows.
	Delete(ctx context.Context, table string, filters ...Filter) error
	// Ping probes the remote store for the connectivity watcher.
	Ping(ctx context.Context) error
}
