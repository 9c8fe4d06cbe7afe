package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/lexer"
	"github.com/lKGreat/cyscaledb/internal/parser"
)

func parseOne(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := parser.New(lexer.New(sql)).ParseStatement()
	require.NoError(t, err, sql)
	return stmt
}

func parseSelect(t *testing.T, sql string) *ast.SelectStatement {
	t.Helper()
	stmt := parseOne(t, sql)
	sel, ok := stmt.(*ast.SelectStatement)
	require.True(t, ok, "%q did not parse to a SELECT, got %T", sql, stmt)
	return sel
}

// TestSelectClauseOrderContract covers spec.md §8 property 1: a SELECT
// using every clause in its canonical order parses into the matching
// SelectStatement fields.
func TestSelectClauseOrderContract(t *testing.T) {
	sel := parseSelect(t, `
		SELECT DISTINCT id, name
		FROM users
		WHERE age >= 18
		GROUP BY name
		HAVING COUNT(*) > 1
		ORDER BY id DESC
		LIMIT 10
	`)
	require.True(t, sel.Distinct)
	require.Len(t, sel.Items, 2)
	require.NotNil(t, sel.From)
	require.NotNil(t, sel.Where)
	require.NotNil(t, sel.GroupBy)
	require.Len(t, sel.GroupBy.Items, 1)
	require.NotNil(t, sel.Having)
	require.Len(t, sel.OrderBy, 1)
	require.True(t, sel.OrderBy[0].Desc)
	require.NotNil(t, sel.Limit)
	require.Nil(t, sel.Offset)
}

// TestLimitSwapInvariant covers spec.md §8 invariant 4: `LIMIT a, b`
// and `LIMIT b OFFSET a` must produce the same (Offset, Limit) AST
// shape.
func TestLimitSwapInvariant(t *testing.T) {
	comma := parseSelect(t, "SELECT * FROM t LIMIT 5, 10")
	offsetForm := parseSelect(t, "SELECT * FROM t LIMIT 10 OFFSET 5")

	requireIntLiteral(t, comma.Offset, "5")
	requireIntLiteral(t, comma.Limit, "10")
	requireIntLiteral(t, offsetForm.Offset, "5")
	requireIntLiteral(t, offsetForm.Limit, "10")
}

// TestLimitWithoutOffset covers the bare `LIMIT n` form, which leaves
// Offset nil rather than defaulting it to a zero literal.
func TestLimitWithoutOffset(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t LIMIT 10")
	requireIntLiteral(t, sel.Limit, "10")
	require.Nil(t, sel.Offset)
}

func requireIntLiteral(t *testing.T, e ast.Expression, want string) {
	t.Helper()
	lit, ok := e.(*ast.Literal)
	require.True(t, ok, "expected *ast.Literal, got %T", e)
	require.Equal(t, ast.LiteralInt, lit.Kind)
	require.Equal(t, want, lit.Text)
}

// TestCaseSimpleForm covers `CASE x WHEN ... THEN ...`, which carries
// a non-nil Operand.
func TestCaseSimpleForm(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE status WHEN 1 THEN 'a' WHEN 2 THEN 'b' ELSE 'c' END FROM t")
	require.Len(t, sel.Items, 1)
	c, ok := sel.Items[0].Expr.(*ast.CaseExpr)
	require.True(t, ok, "expected *ast.CaseExpr, got %T", sel.Items[0].Expr)
	require.NotNil(t, c.Operand)
	require.Len(t, c.Whens, 2)
	require.NotNil(t, c.Else)
}

// TestCaseSearchedForm covers `CASE WHEN cond THEN ...`, which leaves
// Operand nil so the executor knows each WHEN is a boolean predicate
// rather than an equality test against a common operand.
func TestCaseSearchedForm(t *testing.T) {
	sel := parseSelect(t, "SELECT CASE WHEN age >= 18 THEN 'adult' ELSE 'minor' END FROM t")
	c, ok := sel.Items[0].Expr.(*ast.CaseExpr)
	require.True(t, ok, "expected *ast.CaseExpr, got %T", sel.Items[0].Expr)
	require.Nil(t, c.Operand)
	require.Len(t, c.Whens, 1)
	_, isBinary := c.Whens[0].When.(*ast.BinaryExpr)
	require.True(t, isBinary, "searched CASE's WHEN should be a boolean expression, got %T", c.Whens[0].When)
}

// TestWindowFrameBounds covers the explicit ROWS/RANGE BETWEEN bound
// forms spec.md §4.2 lists, plus the single-bound shorthand that
// implies CURRENT ROW as the end bound.
func TestWindowFrameBounds(t *testing.T) {
	sel := parseSelect(t, `
		SELECT SUM(amount) OVER (
			PARTITION BY account_id
			ORDER BY ts
			ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
		) FROM payments
	`)
	win, ok := sel.Items[0].Expr.(*ast.WindowFuncExpr)
	require.True(t, ok, "expected *ast.WindowFuncExpr, got %T", sel.Items[0].Expr)
	require.True(t, win.Over.HasFrame)
	require.Equal(t, ast.FrameRows, win.Over.FrameUnit)
	require.Equal(t, ast.BoundUnboundedPreceding, win.Over.FrameStart.Kind)
	require.Equal(t, ast.BoundCurrentRow, win.Over.FrameEnd.Kind)
	require.Len(t, sel.Items[0].Expr.(*ast.WindowFuncExpr).Over.PartitionBy, 1)
}

// TestWindowFrameSingleBoundDefaultsEndToCurrentRow covers the
// shorthand `ROWS n PRECEDING` with no BETWEEN/AND, which implies
// CURRENT ROW as the frame end.
func TestWindowFrameSingleBoundDefaultsEndToCurrentRow(t *testing.T) {
	sel := parseSelect(t, "SELECT SUM(x) OVER (ORDER BY ts ROWS 3 PRECEDING) FROM t")
	win := sel.Items[0].Expr.(*ast.WindowFuncExpr)
	require.Equal(t, ast.BoundNPreceding, win.Over.FrameStart.Kind)
	require.NotNil(t, win.Over.FrameStart.Offset)
	require.Equal(t, ast.BoundCurrentRow, win.Over.FrameEnd.Kind)
}

// TestSystemVariableSelect covers spec.md §3's desugaring invariant:
// @@global.x and @@session.x (and the bare, scope-less spelling) all
// resolve to an explicit ast.SystemVariable scope.
func TestSystemVariableSelect(t *testing.T) {
	cases := []struct {
		sql   string
		name  string
		scope ast.VarScope
	}{
		{"SELECT @@global.sort_buffer_size", "sort_buffer_size", ast.VarScopeGlobal},
		{"SELECT @@session.autocommit", "autocommit", ast.VarScopeSession},
		{"SELECT @@autocommit", "autocommit", ast.VarScopeSession},
	}
	for _, c := range cases {
		sel := parseSelect(t, c.sql)
		require.Len(t, sel.Items, 1, c.sql)
		sv, ok := sel.Items[0].Expr.(*ast.SystemVariable)
		require.True(t, ok, "%q: expected *ast.SystemVariable, got %T", c.sql, sel.Items[0].Expr)
		require.Equal(t, c.name, sv.Name, c.sql)
		require.Equal(t, c.scope, sv.Scope, c.sql)
	}
}

// TestSetSystemVariable covers `SET @@session.x = ...`, the statement
// form of the same desugaring rule.
func TestSetSystemVariable(t *testing.T) {
	stmt := parseOne(t, "SET @@session.sql_mode = 'STRICT_ALL_TABLES'")
	set, ok := stmt.(*ast.SetStatement)
	require.True(t, ok, "expected *ast.SetStatement, got %T", stmt)
	require.Equal(t, ast.SetVariable, set.Kind)
	require.Equal(t, "sql_mode", set.VarName)
	require.Equal(t, ast.VarScopeSession, set.VarScope)
}

// TestSetSystemVariableAutocommit covers the special-cased autocommit
// variable, which desugars to SetAutocommit rather than a generic
// SetVariable.
func TestSetSystemVariableAutocommit(t *testing.T) {
	stmt := parseOne(t, "SET @@global.autocommit = 0")
	set, ok := stmt.(*ast.SetStatement)
	require.True(t, ok, "expected *ast.SetStatement, got %T", stmt)
	require.Equal(t, ast.SetAutocommit, set.Kind)
	require.False(t, set.AutocommitOn)
}

// TestLockingClauseForUpdateOf covers `FOR UPDATE OF t1, t2 NOWAIT`.
func TestLockingClauseForUpdateOf(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t1 JOIN t2 ON t1.id = t2.id FOR UPDATE OF t1, t2 NOWAIT")
	require.Equal(t, ast.LockingForUpdate, sel.Locking.Kind)
	require.Equal(t, ast.WaitNoWait, sel.Locking.Wait)
	require.Len(t, sel.Locking.Of, 2)
	require.Equal(t, "t1", sel.Locking.Of[0].Name)
	require.Equal(t, "t2", sel.Locking.Of[1].Name)
}

// TestLockingClauseForShareSkipLocked covers the SKIP LOCKED wait
// modifier.
func TestLockingClauseForShareSkipLocked(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t FOR SHARE SKIP LOCKED")
	require.Equal(t, ast.LockingForShare, sel.Locking.Kind)
	require.Equal(t, ast.WaitSkipLocked, sel.Locking.Wait)
}

// TestLockingClauseLockInShareMode covers the classical
// `LOCK IN SHARE MODE` spelling, which spec.md §4.2 treats as
// synonymous with FOR SHARE.
func TestLockingClauseLockInShareMode(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM t LOCK IN SHARE MODE")
	require.Equal(t, ast.LockingForShare, sel.Locking.Kind)
	require.Empty(t, sel.Locking.Of)
	require.Equal(t, ast.WaitBlock, sel.Locking.Wait)
}
