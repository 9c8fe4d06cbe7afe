// Package ast defines the tagged statement/expression sum types
// produced by the parser (spec.md §3). Nodes are immutable data
// classes with no behavior, each carrying its originating token
// position for error reporting.
package ast

import "github.com/lKGreat/cyscaledb/internal/token"

// Pos is the source position a node originates from.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func PosOf(t token.Token) Pos {
	return Pos{Offset: t.Offset, Line: t.Line, Column: t.Column}
}

// Node is the root of both sum types.
type Node interface {
	Position() Pos
}

// Statement is the root of the statement sum type.
type Statement interface {
	Node
	stmtNode()
}

// Expression is the root of the expression sum type.
type Expression interface {
	Node
	exprNode()
}

// Base is embedded by every concrete node to supply Position(); its
// field is exported so the parser package can set it directly in a
// struct literal when constructing nodes.
type Base struct{ Pos Pos }

func (b Base) Position() Pos { return b.Pos }

// TableName is an optionally schema-qualified table reference.
type TableName struct {
	Schema string
	Name   string
	Alias  string
}

// ColumnName is an optionally table-qualified column reference used in
// contexts that are not themselves expressions (e.g. USING (col, …),
// UPDATE SET targets).
type ColumnName struct {
	Table string
	Name  string
}
