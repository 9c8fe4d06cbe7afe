// Package engine defines the collaborator interfaces spec.md §6 names
// as external to the core (Catalog, Executor, Logger) plus the shared
// DataValue tagged union, grounded on the teacher's separation of
// server/innodb storage concerns from the protocol/session layers: the
// core here depends only on these interfaces, never on a concrete
// storage engine.
package engine

import "github.com/shopspring/decimal"

// DataValueKind tags the variant held by a DataValue (spec.md §3).
type DataValueKind int

const (
	KindNull DataValueKind = iota
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindBool
	KindDate
	KindDateTime
	KindTime
)

// DataValue is the tagged union used for literals, row cells, and bind
// values throughout the pipeline (spec.md §3), using
// shopspring/decimal for exact DECIMAL arithmetic the way the teacher
// already depends on it for InnoDB numeric columns.
type DataValue struct {
	Kind    DataValueKind
	Int     int64
	Float   float64
	Decimal decimal.Decimal
	Str     string
	Bool    bool
	// Date/DateTime/Time are stored as their canonical text
	// representation (spec.md §4.6 format table) since the core never
	// performs calendar arithmetic itself.
	Text string
}

func (v DataValue) IsNull() bool { return v.Kind == KindNull }

// Equal implements the by-value equality spec.md §8 property 6 (spill
// round-trip) and property 5 (parse round-trip) rely on.
func (v DataValue) Equal(o DataValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindDecimal:
		return v.Decimal.Equal(o.Decimal)
	case KindString:
		return v.Str == o.Str
	case KindDate, KindDateTime, KindTime:
		// compare the canonical text, falling back to Str when Text is
		// empty, the same choice the spill codec makes when encoding
		a, b := v.Text, o.Text
		if a == "" {
			a = v.Str
		}
		if b == "" {
			b = o.Str
		}
		return a == b
	case KindBool:
		return v.Bool == o.Bool
	default:
		return false
	}
}

// ColumnType names the SQL-level type used by the type-mapping table
// of spec.md §4.6.
type ColumnType int

const (
	ColInt ColumnType = iota
	ColBigInt
	ColFloat
	ColDouble
	ColDecimal
	ColVarChar
	ColText
	ColDate
	ColDateTime
	ColTime
	ColBoolean
)

// ColumnSchema describes one result or table column.
type ColumnSchema struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is an ordered column list, returned by Catalog lookups and
// carried by spill files.
type Schema struct {
	Columns []ColumnSchema
}

// Catalog is the metadata collaborator of spec.md §6.
type Catalog interface {
	GetTableSchema(db, table string) (Schema, bool)
	HasDatabase(db string) bool
}

// ResultSet is a streamed query result: callers pull rows until Next
// returns false, then check Err.
type ResultSet interface {
	Schema() Schema
	Next() bool
	Row() []DataValue
	Err() error
	Close() error
}

// ResultKind tags the Result sum type spec.md §6 names
// (Query/Modification/Ddl/Empty).
type ResultKind int

const (
	ResultQuery ResultKind = iota
	ResultModification
	ResultDdl
	ResultEmpty
)

// Result is the outcome of one Executor.Execute call (spec.md §6's
// Query(ResultSet) | Modification{affected_rows,last_insert_id} |
// Ddl(message) | Empty sum type, expressed as a tagged struct in the
// teacher's result/error sum-type idiom rather than an interface
// hierarchy, since only Executor.Execute produces it).
type Result struct {
	Kind ResultKind

	// ResultQuery
	Rows ResultSet

	// ResultModification
	AffectedRows uint64
	LastInsertID uint64

	// ResultDdl
	Message string
}

// Executor is the query-execution collaborator of spec.md §6. The
// core never inspects how execution happens, only the Result it
// returns.
type Executor interface {
	CurrentDatabase() string
	SetCurrentDatabase(db string)
	Execute(sql string) (Result, error)
}

// Logger is the minimal logging collaborator spec.md §6 names,
// satisfied by internal/logging.Logger.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}
