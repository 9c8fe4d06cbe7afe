package ast

// ColumnType is a parsed type reference, e.g. VARCHAR(255), DECIMAL(10,2).
type ColumnType struct {
	Name      string
	Length    int
	HasLength bool
	Precision int
	Scale     int
	HasScale  bool
	Unsigned  bool
}

// ReferentialAction enumerates ON DELETE / ON UPDATE actions for
// foreign keys (spec.md §3).
type ReferentialAction int

const (
	ActionNoAction ReferentialAction = iota
	ActionRestrict
	ActionCascade
	ActionSetNull
	ActionSetDefault
)

type ForeignKeyRef struct {
	Table    TableName
	Columns  []string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// ColumnDef is one column in a CREATE TABLE column list.
type ColumnDef struct {
	Name          string
	Type          ColumnType
	NotNull       bool
	Default       Expression
	HasDefault    bool
	AutoIncrement bool
	PrimaryKey    bool
	Unique        bool
	Comment       string
	Charset       string
	Collate       string
}

// IndexDef is a standalone or inline table-level index definition.
type IndexKind int

const (
	IndexPlain IndexKind = iota
	IndexUnique
	IndexPrimary
	IndexForeign
	IndexFulltext
)

type IndexDef struct {
	Kind       IndexKind
	Name       string
	Columns    []string
	ForeignKey *ForeignKeyRef // set only when Kind == IndexForeign
}

type CreateTableStatement struct {
	Base
	Table       TableName
	IfNotExists bool
	Columns     []ColumnDef
	Indexes     []IndexDef
	LikeTable   *TableName // CREATE TABLE t LIKE other
}

func (*CreateTableStatement) stmtNode() {}

type DropTableStatement struct {
	Base
	Tables   []TableName
	IfExists bool
}

func (*DropTableStatement) stmtNode() {}

// AlterAction is the sum type of one ALTER TABLE clause.
type AlterAction interface {
	alterActionNode()
}

type AddColumnAction struct{ Column ColumnDef }

func (AddColumnAction) alterActionNode() {}

type DropColumnAction struct{ Name string }

func (DropColumnAction) alterActionNode() {}

type RenameColumnAction struct{ From, To string }

func (RenameColumnAction) alterActionNode() {}

type RenameTableAction struct{ To TableName }

func (RenameTableAction) alterActionNode() {}

type AddIndexAction struct{ Index IndexDef }

func (AddIndexAction) alterActionNode() {}

type DropIndexAction struct{ Name string }

func (DropIndexAction) alterActionNode() {}

type ModifyColumnAction struct{ Column ColumnDef }

func (ModifyColumnAction) alterActionNode() {}

type AlterTableStatement struct {
	Base
	Table   TableName
	Actions []AlterAction
}

func (*AlterTableStatement) stmtNode() {}

type CreateIndexStatement struct {
	Base
	Index IndexDef
	Table TableName
}

func (*CreateIndexStatement) stmtNode() {}

type DropIndexStatement struct {
	Base
	Name  string
	Table TableName
}

func (*DropIndexStatement) stmtNode() {}

type CreateDatabaseStatement struct {
	Base
	Name        string
	IfNotExists bool
}

func (*CreateDatabaseStatement) stmtNode() {}

type DropDatabaseStatement struct {
	Base
	Name     string
	IfExists bool
}

func (*DropDatabaseStatement) stmtNode() {}

type CreateViewStatement struct {
	Base
	Name        TableName
	Columns     []string
	Select      *SelectStatement
	OrReplace   bool
}

func (*CreateViewStatement) stmtNode() {}

type DropViewStatement struct {
	Base
	Names    []TableName
	IfExists bool
}

func (*DropViewStatement) stmtNode() {}

type CreateUserStatement struct {
	Base
	User        string
	Host        string
	Password    string
	HasPassword bool
	IfNotExists bool
}

func (*CreateUserStatement) stmtNode() {}

type DropUserStatement struct {
	Base
	Users    []string
	IfExists bool
}

func (*DropUserStatement) stmtNode() {}

// Param is one procedure/function parameter.
type ParamMode int

const (
	ParamIn ParamMode = iota
	ParamOut
	ParamInOut
)

type Param struct {
	Name string
	Type ColumnType
	Mode ParamMode
}

type CreateProcedureStatement struct {
	Base
	Name   string
	Params []Param
	Body   []Statement
}

func (*CreateProcedureStatement) stmtNode() {}

type CreateFunctionStatement struct {
	Base
	Name         string
	Params       []Param
	ReturnType   ColumnType
	Deterministic bool
	Body         []Statement
}

func (*CreateFunctionStatement) stmtNode() {}

type DropProcedureStatement struct {
	Base
	Name     string
	IfExists bool
}

func (*DropProcedureStatement) stmtNode() {}

type DropFunctionStatement struct {
	Base
	Name     string
	IfExists bool
}

func (*DropFunctionStatement) stmtNode() {}

// TriggerTiming / TriggerEvent describe `CREATE TRIGGER ... BEFORE|AFTER
// INSERT|UPDATE|DELETE ON table FOR EACH ROW body`.
type TriggerTiming int

const (
	TriggerBefore TriggerTiming = iota
	TriggerAfter
)

type TriggerEvent int

const (
	TriggerInsert TriggerEvent = iota
	TriggerUpdate
	TriggerDelete
)

type CreateTriggerStatement struct {
	Base
	Name   string
	Timing TriggerTiming
	Event  TriggerEvent
	Table  TableName
	Body   []Statement
}

func (*CreateTriggerStatement) stmtNode() {}

type DropTriggerStatement struct {
	Base
	Name     string
	IfExists bool
}

func (*DropTriggerStatement) stmtNode() {}

type CreateEventStatement struct {
	Base
	Name     string
	Schedule string // raw schedule expression text, interpreted by the engine
	Body     []Statement
}

func (*CreateEventStatement) stmtNode() {}

type DropEventStatement struct {
	Base
	Name     string
	IfExists bool
}

func (*DropEventStatement) stmtNode() {}
