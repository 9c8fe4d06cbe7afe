// Package memengine is an in-memory Catalog/Executor reference
// implementation. spec.md §1 treats storage, MVCC, the optimizer, and
// the executor as external collaborators reachable only through
// engine.Catalog/engine.Executor; nothing in the pack supplies a
// working one (the teacher's own server/innodb tree is a non-functional
// partial port), so this package exists purely to test-drive the
// dispatcher end-to-end against spec.md §8's testable properties.
package memengine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/lexer"
	"github.com/lKGreat/cyscaledb/internal/mysqlerr"
	"github.com/lKGreat/cyscaledb/internal/parser"
)

// Table is a column-oriented, row-major in-memory table.
type Table struct {
	Schema engine.Schema
	Rows   [][]engine.DataValue
}

// Database groups tables under a schema name.
type Database struct {
	Name   string
	Tables map[string]*Table
}

// Engine is a trivially synchronized Catalog+Executor pair.
type Engine struct {
	mu      sync.RWMutex
	dbs     map[string]*Database
	current string
}

func New() *Engine {
	return &Engine{dbs: make(map[string]*Database)}
}

func (e *Engine) CreateDatabase(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.dbs[name]; !ok {
		e.dbs[name] = &Database{Name: name, Tables: make(map[string]*Table)}
	}
}

func (e *Engine) CreateTable(db, table string, schema engine.Schema) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.dbs[db]
	if !ok {
		d = &Database{Name: db, Tables: make(map[string]*Table)}
		e.dbs[db] = d
	}
	d.Tables[table] = &Table{Schema: schema}
}

func (e *Engine) HasDatabase(db string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.dbs[db]
	return ok
}

func (e *Engine) GetTableSchema(db, table string) (engine.Schema, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.dbs[db]
	if !ok {
		return engine.Schema{}, false
	}
	t, ok := d.Tables[table]
	if !ok {
		return engine.Schema{}, false
	}
	return t.Schema, true
}

func (e *Engine) CurrentDatabase() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

func (e *Engine) SetCurrentDatabase(db string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = db
}

// Execute parses sql and dispatches to the minimal set of statement
// kinds this reference engine supports: CREATE/DROP DATABASE, CREATE
// TABLE, INSERT ... VALUES, SELECT over a single base table, and
// BEGIN/COMMIT/ROLLBACK, SET and KILL, which are acknowledged with
// ResultEmpty. SELECT returns every column of the table (the select
// list is not evaluated) and filters rows only for a WHERE of the form
// `col = literal`; any other WHERE keeps every row, and GROUP BY,
// HAVING, ORDER BY, LIMIT and aggregate calls are not applied. A FROM
// other than one base table (joins, derived tables, no FROM) and every
// other statement kind are rejected with ExecutionError, since a full
// optimizer/executor is explicitly out of scope (spec.md §1).
func (e *Engine) Execute(sql string) (engine.Result, error) {
	p := parser.New(lexer.New(sql))
	stmt, err := p.ParseStatement()
	if err != nil {
		if se, ok := err.(*lexer.SyntaxError); ok {
			return engine.Result{}, mysqlerr.Syntax(se.Message, se.Line, se.Column)
		}
		return engine.Result{}, mysqlerr.Syntax(err.Error(), 0, 0)
	}

	switch s := stmt.(type) {
	case *ast.CreateDatabaseStatement:
		e.CreateDatabase(s.Name)
		return engine.Result{Kind: engine.ResultDdl, Message: "Database created"}, nil

	case *ast.DropDatabaseStatement:
		e.mu.Lock()
		delete(e.dbs, s.Name)
		e.mu.Unlock()
		return engine.Result{Kind: engine.ResultDdl, Message: "Database dropped"}, nil

	case *ast.CreateTableStatement:
		schema := engine.Schema{}
		for _, c := range s.Columns {
			schema.Columns = append(schema.Columns, engine.ColumnSchema{
				Name:     c.Name,
				Type:     mapColumnType(c.Type),
				Nullable: !c.NotNull,
			})
		}
		e.CreateTable(e.CurrentDatabase(), s.Table.Name, schema)
		return engine.Result{Kind: engine.ResultDdl, Message: "Table created"}, nil

	case *ast.InsertStatement:
		return e.execInsert(s)

	case *ast.SelectStatement:
		return e.execSelect(s)

	case *ast.TransactionStatement:
		// BEGIN/COMMIT/ROLLBACK are no-ops that return ResultEmpty
		// rather than rejecting the statement: this reference engine
		// has no MVCC to commit or roll back against (spec.md §1), and
		// neither it nor the dispatcher changes the session's
		// transaction flag for them.
		return engine.Result{Kind: engine.ResultEmpty}, nil

	case *ast.SetStatement:
		// SET's several shapes (session/global variable, autocommit,
		// transaction isolation) are acknowledged with ResultEmpty; no
		// engine or session state changes.
		return engine.Result{Kind: engine.ResultEmpty}, nil

	case *ast.KillStatement:
		// KILL is acknowledged without terminating any connection.
		return engine.Result{Kind: engine.ResultEmpty}, nil

	default:
		return engine.Result{}, mysqlerr.Execution(fmt.Sprintf("unsupported statement for in-memory reference engine: %T", stmt))
	}
}

func mapColumnType(t ast.ColumnType) engine.ColumnType {
	switch t.Name {
	case "INT", "INTEGER":
		return engine.ColInt
	case "BIGINT":
		return engine.ColBigInt
	case "FLOAT":
		return engine.ColFloat
	case "DOUBLE":
		return engine.ColDouble
	case "DECIMAL", "NUMERIC":
		return engine.ColDecimal
	case "VARCHAR":
		return engine.ColVarChar
	case "TEXT":
		return engine.ColText
	case "DATE":
		return engine.ColDate
	case "DATETIME", "TIMESTAMP":
		return engine.ColDateTime
	case "TIME":
		return engine.ColTime
	case "BOOL", "BOOLEAN":
		return engine.ColBoolean
	default:
		return engine.ColVarChar
	}
}

func (e *Engine) execInsert(s *ast.InsertStatement) (engine.Result, error) {
	if s.Select != nil {
		return engine.Result{}, mysqlerr.Execution("INSERT ... SELECT not supported by the in-memory reference engine")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.dbs[e.current]
	if !ok {
		return engine.Result{}, mysqlerr.UnknownDatabase(e.current)
	}
	t, ok := d.Tables[s.Table.Name]
	if !ok {
		return engine.Result{}, mysqlerr.UnknownTable(s.Table.Name)
	}
	var inserted uint64
	for _, tuple := range s.Values {
		row := make([]engine.DataValue, len(t.Schema.Columns))
		for i, expr := range tuple {
			if i >= len(row) {
				break
			}
			row[i] = literalToValue(expr)
		}
		t.Rows = append(t.Rows, row)
		inserted++
	}
	return engine.Result{Kind: engine.ResultModification, AffectedRows: inserted}, nil
}

func literalToValue(expr ast.Expression) engine.DataValue {
	lit, ok := expr.(*ast.Literal)
	if !ok {
		return engine.DataValue{Kind: engine.KindNull}
	}
	switch lit.Kind {
	case ast.LiteralNull:
		return engine.DataValue{Kind: engine.KindNull}
	case ast.LiteralString:
		return engine.DataValue{Kind: engine.KindString, Str: lit.Text}
	default:
		return engine.DataValue{Kind: engine.KindString, Str: lit.Text}
	}
}

func (e *Engine) execSelect(s *ast.SelectStatement) (engine.Result, error) {
	base, ok := s.From.(*ast.BaseTableRef)
	if !ok {
		return engine.Result{}, mysqlerr.Execution("only single base-table SELECT is supported by the in-memory reference engine")
	}
	e.mu.RLock()
	d, ok := e.dbs[e.current]
	if !ok {
		e.mu.RUnlock()
		return engine.Result{}, mysqlerr.UnknownDatabase(e.current)
	}
	t, ok := d.Tables[base.Table.Name]
	if !ok {
		e.mu.RUnlock()
		return engine.Result{}, mysqlerr.UnknownTable(base.Table.Name)
	}
	rows := append([][]engine.DataValue(nil), t.Rows...)
	schema := t.Schema
	e.mu.RUnlock()

	if s.Where != nil {
		filtered := rows[:0:0]
		for _, row := range rows {
			if matchesSimpleEquality(s.Where, schema, row) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if len(s.OrderBy) == 0 {
		// deterministic default order keeps spec.md §8's round-trip
		// properties testable without depending on map iteration order
		sort.SliceStable(rows, func(i, j int) bool { return false })
	}

	return engine.Result{Kind: engine.ResultQuery, Rows: &sliceResultSet{schema: schema, rows: rows, pos: -1}}, nil
}

func matchesSimpleEquality(expr ast.Expression, schema engine.Schema, row []engine.DataValue) bool {
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpEq {
		return true
	}
	col, ok := bin.Left.(*ast.ColumnRef)
	if !ok {
		return true
	}
	lit, ok := bin.Right.(*ast.Literal)
	if !ok {
		return true
	}
	for i, c := range schema.Columns {
		if c.Name == col.Name {
			return row[i].Str == lit.Text
		}
	}
	return true
}

// sliceResultSet adapts an in-memory row slice to engine.ResultSet.
type sliceResultSet struct {
	schema engine.Schema
	rows   [][]engine.DataValue
	pos    int
}

func (r *sliceResultSet) Schema() engine.Schema { return r.schema }

func (r *sliceResultSet) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *sliceResultSet) Row() []engine.DataValue { return r.rows[r.pos] }
func (r *sliceResultSet) Err() error              { return nil }
func (r *sliceResultSet) Close() error            { return nil }
