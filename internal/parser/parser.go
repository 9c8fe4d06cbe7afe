// Package parser implements a recursive-descent parser over
// internal/lexer output, producing internal/ast nodes per spec.md §4.2.
// Grounded on the pack's hand-written T-SQL parser
// (ha1tch/tsqlparser/parser): a Pratt expression parser (a precedence
// table keyed by token kind, with switch-based prefix/infix dispatch)
// combined with one recursive
// function per statement form, adapted to MySQL's clause grammar
// instead of T-SQL's. The teacher's own server/innodb/sqlparser is an
// incomplete vitess port with no working lexer, so it contributed
// nothing here beyond confirming that gap.
package parser

import (
	"fmt"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/lexer"
	"github.com/lKGreat/cyscaledb/internal/token"
)

// precedence levels, low to high (spec.md §4.2 "Expression grammar /
// precedence (low to high)").
const (
	_ int = iota
	precLowest
	precOr
	precAnd
	precNot
	precCompare // =, <>, <, >, <=, >=, IS, IN, LIKE, BETWEEN
	precBitOr
	precBitXor
	precBitAnd
	precAdditive
	precMultiplicative
	precUnary
	precPostfix // -> ->> . (
)

var precedences = map[token.Kind]int{
	token.OR:        precOr,
	token.AND:       precAnd,
	token.EQ:        precCompare,
	token.NEQ:       precCompare,
	token.LT:        precCompare,
	token.GT:        precCompare,
	token.LE:        precCompare,
	token.GE:        precCompare,
	token.IS:        precCompare,
	token.IN:        precCompare,
	token.LIKE:      precCompare,
	token.BETWEEN:   precCompare,
	token.OR_BIT:    precBitOr,
	token.CARET_BIT: precBitXor,
	token.AND_BIT:   precBitAnd,
	token.PLUS:      precAdditive,
	token.MINUS:     precAdditive,
	token.ASTERISK:  precMultiplicative,
	token.SLASH:     precMultiplicative,
	token.PERCENT:   precMultiplicative,
	token.ARROW:     precPostfix,
	token.ARROW2:    precPostfix,
}

// Parser turns a token stream into an AST, stopping at the first
// syntax error (spec.md §4.2 "fail-fast with position").
type Parser struct {
	l *lexer.Lexer

	cur    token.Token
	peek   token.Token
	lexErr error

	// lastOnDeleteClause records which ON clause parseReferentialAction
	// just consumed (DELETE vs UPDATE), since it reports only the
	// resulting action and the caller needs to know which field to
	// assign it to.
	lastOnDeleteClause bool
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	t, err := p.l.Next()
	if err != nil {
		// lexical errors surface the next time the caller examines
		// p.cur via a sentinel ILLEGAL token carrying no position
		// recovery; ParseStatement re-raises via p.lexErr.
		p.lexErr = err
		t = token.Token{Kind: token.ILLEGAL}
	}
	p.peek = t
}

func (p *Parser) syntaxErrorf(format string, args ...interface{}) error {
	return &lexer.SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Offset:  p.cur.Offset,
		Line:    p.cur.Line,
		Column:  p.cur.Column,
	}
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, p.syntaxErrorf("unexpected token %q", p.cur.Lexeme)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) pos() ast.Pos { return ast.PosOf(p.cur) }

// ParseStatement parses exactly one statement, optionally followed by
// a terminating semicolon which is consumed but not required.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	if p.lexErr != nil {
		err := p.lexErr
		p.lexErr = nil
		return nil, err
	}

	var stmt ast.Statement
	var err error

	switch p.cur.Kind {
	case token.SELECT, token.WITH:
		stmt, err = p.parseSelectOrSetOp()
	case token.INSERT:
		stmt, err = p.parseInsert()
	case token.UPDATE:
		stmt, err = p.parseUpdate()
	case token.DELETE:
		stmt, err = p.parseDelete()
	case token.USE:
		stmt, err = p.parseUse()
	case token.SHOW:
		stmt, err = p.parseShow()
	case token.DESCRIBE:
		stmt, err = p.parseDescribe()
	case token.EXPLAIN:
		stmt, err = p.parseExplain()
	case token.BEGIN:
		stmt, err = p.parseTxControl(ast.TxBegin)
	case token.START:
		stmt, err = p.parseStartTransaction()
	case token.COMMIT:
		stmt, err = p.parseTxControl(ast.TxCommit)
	case token.ROLLBACK:
		stmt, err = p.parseTxControl(ast.TxRollback)
	case token.SET:
		stmt, err = p.parseSet()
	case token.KILL:
		stmt, err = p.parseKill()
	case token.GRANT:
		stmt, err = p.parseGrant()
	case token.REVOKE:
		stmt, err = p.parseRevoke()
	case token.CALL:
		stmt, err = p.parseCall()
	case token.CREATE:
		stmt, err = p.parseCreate()
	case token.DROP:
		stmt, err = p.parseDrop()
	case token.ALTER:
		stmt, err = p.parseAlterTable()
	case token.ANALYZE:
		stmt, err = p.parseAnalyzeTable()
	case token.OPTIMIZE:
		stmt, err = p.parseOptimizeTable()
	case token.FLUSH:
		stmt, err = p.parseFlush()
	case token.LOCK:
		stmt, err = p.parseLockTables()
	case token.UNLOCK:
		stmt, err = p.parseUnlockTables()
	default:
		return nil, p.syntaxErrorf("unexpected token %q at start of statement", p.cur.Lexeme)
	}
	if err != nil {
		if p.lexErr != nil {
			err = p.lexErr
			p.lexErr = nil
		}
		return nil, err
	}
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
	return stmt, nil
}
