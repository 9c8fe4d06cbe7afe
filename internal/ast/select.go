package ast

// JoinKind enumerates the join forms spec.md §3 lists.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinNatural
)

// TableRef is a FROM-clause term: either a base table, a derived table
// (subquery with mandatory alias), or a join combining two TableRefs.
type TableRef interface {
	Node
	tableRefNode()
}

type BaseTableRef struct {
	Base
	Table TableName
}

func (*BaseTableRef) tableRefNode() {}

// DerivedTableRef is `(SELECT ...) AS alias`; MySQL requires the alias.
type DerivedTableRef struct {
	Base
	Select *SelectStatement
	Alias  string
}

func (*DerivedTableRef) tableRefNode() {}

type JoinRef struct {
	Base
	Kind      JoinKind
	Left      TableRef
	Right     TableRef
	On        Expression   // nil when Using is set or kind is NATURAL/CROSS
	Using     []ColumnName
	HasOn     bool
}

func (*JoinRef) tableRefNode() {}

// SelectItem is one projection term: `expr [AS alias]` or a bare `*`
// / `table.*`.
type SelectItem struct {
	Expr  Expression // nil when Star is set
	Alias string
	Star  bool
	Table string // qualifier for table.* ; empty for bare *
}

// GroupBy holds the GROUP BY terms plus an optional WITH ROLLUP flag.
type GroupBy struct {
	Items      []Expression
	WithRollup bool
}

// LockingClauseKind enumerates FOR UPDATE / FOR SHARE with wait
// modifiers (spec.md §3).
type LockingClauseKind int

const (
	LockingNone LockingClauseKind = iota
	LockingForUpdate
	LockingForShare
)

type WaitMode int

const (
	WaitBlock WaitMode = iota
	WaitNoWait
	WaitSkipLocked
)

type LockingClause struct {
	Kind LockingClauseKind
	Of   []TableName
	Wait WaitMode
}

// NamedWindow is one entry of a top-level WINDOW clause.
type NamedWindow struct {
	Name string
	Spec WindowSpec
}

// CTE is one WITH clause entry, optionally recursive.
type CTE struct {
	Name      string
	Columns   []string
	Select    *SelectStatement
	Recursive bool
}

// SelectStatement is the full SELECT grammar of spec.md §3/§4.2:
// CTEs, set operations chained left-associatively via Combinations,
// window clause, and locking clause.
type SelectStatement struct {
	Base

	CTEs []CTE

	Distinct bool
	Items    []SelectItem
	From     TableRef // nil for SELECT with no FROM
	Where    Expression
	GroupBy  *GroupBy
	Having   Expression
	Windows  []NamedWindow
	OrderBy  []OrderItem
	Limit    Expression
	Offset   Expression

	Locking LockingClause

	// Combinations chains subsequent UNION/INTERSECT/EXCEPT arms applied
	// left-to-right against the accumulated result (spec.md §4.2 "Set
	// operations are left-associative").
	Combinations []SetOpArm
}

func (*SelectStatement) stmtNode() {}
func (*SelectStatement) exprNode() {} // usable wherever a Subquery wraps it

// SetOpKind enumerates UNION/INTERSECT/EXCEPT.
type SetOpKind int

const (
	SetOpUnion SetOpKind = iota
	SetOpIntersect
	SetOpExcept
)

type SetOpArm struct {
	Kind  SetOpKind
	All   bool
	Query *SelectStatement
}
