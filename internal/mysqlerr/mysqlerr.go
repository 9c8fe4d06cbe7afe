// Package mysqlerr defines the typed error taxonomy the wire layer maps
// onto MySQL error-packet codes and SQLSTATEs.
package mysqlerr

import "fmt"

// Error is a MySQL-facing error: a numeric code, a five-character
// SQLSTATE, and a human-readable message. It never carries a Go error
// chain across the wire boundary — ProtocolError and IoError (see
// server.go) are handled separately and never become one of these.
type Error struct {
	Code    uint16
	State   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error %d (%s): %s", e.Code, e.State, e.Message)
}

func newErr(code uint16, state, format string, args ...interface{}) *Error {
	return &Error{Code: code, State: state, Message: fmt.Sprintf(format, args...)}
}

// Codes from spec.md §7's error taxonomy table.
const (
	CodeSyntax           uint16 = 1064
	CodeUnknownDatabase  uint16 = 1049
	CodeUnknownTable     uint16 = 1146
	CodeAccessDenied     uint16 = 1045
	CodeUnsupportedCmd   uint16 = 1047
	CodeExecutionError   uint16 = 1064
	CodeTooManyConns     uint16 = 1040
	StateSyntaxOrAccess  string = "42000"
	StateUnknownTable    string = "42S02"
	StateAccessDenied    string = "28000"
	StateUnsupportedStmt string = "08S01"
	StateConnRejected    string = "08004"
)

// Syntax wraps a lexer/parser SyntaxError for the wire (spec §4.2, §7).
func Syntax(msg string, line, column int) *Error {
	return newErr(CodeSyntax, StateSyntaxOrAccess, "You have an error in your SQL syntax: %s (line %d, column %d)", msg, line, column)
}

// UnknownDatabase reports INIT_DB / USE against a database the catalog
// doesn't know (spec §4.4, §4.6).
func UnknownDatabase(name string) *Error {
	return newErr(CodeUnknownDatabase, StateSyntaxOrAccess, "Unknown database '%s'", name)
}

// UnknownTable reports COM_FIELD_LIST against an unknown table.
func UnknownTable(name string) *Error {
	return newErr(CodeUnknownTable, StateUnknownTable, "Table '%s' doesn't exist", name)
}

// AccessDenied reports a failed handshake (spec §4.4).
func AccessDenied(user, host string, usingPassword bool) *Error {
	yn := "NO"
	if usingPassword {
		yn = "YES"
	}
	return newErr(CodeAccessDenied, StateAccessDenied, "Access denied for user '%s'@'%s' (using password: %s)", user, host, yn)
}

// UnsupportedCommand reports a COM_* code the dispatcher doesn't handle.
func UnsupportedCommand(code byte) *Error {
	return newErr(CodeUnsupportedCmd, StateUnsupportedStmt, "Unsupported command: 0x%02X", code)
}

// Execution wraps an error surfaced by the external Executor.
func Execution(msg string) *Error {
	return newErr(CodeExecutionError, StateSyntaxOrAccess, "%s", msg)
}

// TooManyConnections reports a MaxClients cap refusal (spec §4.7).
func TooManyConnections(max int) *Error {
	return newErr(CodeTooManyConns, StateConnRejected, "Too many connections (max %d)", max)
}
