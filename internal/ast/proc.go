package ast

// DeclareStatement introduces a local variable inside a procedure or
// function body (spec.md §3 procedure control flow).
type DeclareStatement struct {
	Base
	Names      []string
	Type       ColumnType
	Default    Expression
	HasDefault bool
}

func (*DeclareStatement) stmtNode() {}

// IfBranch is one WHEN/THEN-shaped arm of an IF statement, reused for
// both the leading IF and subsequent ELSEIF arms.
type IfBranch struct {
	Cond Expression
	Body []Statement
}

type IfStatement struct {
	Base
	Branches []IfBranch
	Else     []Statement
}

func (*IfStatement) stmtNode() {}

type WhileStatement struct {
	Base
	Label string // optional, empty if absent
	Cond  Expression
	Body  []Statement
}

func (*WhileStatement) stmtNode() {}

type RepeatStatement struct {
	Base
	Label string
	Body  []Statement
	Until Expression
}

func (*RepeatStatement) stmtNode() {}

type LoopStatement struct {
	Base
	Label string
	Body  []Statement
}

func (*LoopStatement) stmtNode() {}

type LeaveStatement struct {
	Base
	Label string
}

func (*LeaveStatement) stmtNode() {}

type IterateStatement struct {
	Base
	Label string
}

func (*IterateStatement) stmtNode() {}

// ReturnStatement is a function body RETURN expr;. The parser accepts
// it in any routine body; it does not check whether the enclosing
// routine is a function or a procedure.
type ReturnStatement struct {
	Base
	Value Expression
}

func (*ReturnStatement) stmtNode() {}

// AssignStatement is `SET localvar = expr` inside a procedure/function
// body, distinct from the top-level SetStatement which targets session
// or global scope.
type AssignStatement struct {
	Base
	Name  string
	Value Expression
}

func (*AssignStatement) stmtNode() {}
