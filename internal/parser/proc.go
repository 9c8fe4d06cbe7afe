package parser

import (
	"strings"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.curIs(token.RPAREN) {
		mode := ast.ParamIn
		switch {
		case p.curIs(token.IN):
			p.advance()
		case p.wordIs("OUT"):
			mode = ast.ParamOut
			p.advance()
		case p.wordIs("INOUT"):
			mode = ast.ParamInOut
			p.advance()
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		typ, err := p.parseColumnType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: name.Lexeme, Type: typ, Mode: mode})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseCreateProcedure(pos ast.Pos) (ast.Statement, error) {
	p.advance() // PROCEDURE
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseRoutineBody()
	if err != nil {
		return nil, err
	}
	return &ast.CreateProcedureStatement{Name: name.Lexeme, Params: params, Body: body, Base: astBase(pos)}, nil
}

func (p *Parser) parseCreateFunction(pos ast.Pos) (ast.Statement, error) {
	p.advance() // FUNCTION
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if !p.wordIs("RETURNS") {
		return nil, p.syntaxErrorf("expected RETURNS in CREATE FUNCTION")
	}
	p.advance()
	retType, err := p.parseColumnType()
	if err != nil {
		return nil, err
	}
	deterministic := false
	for p.wordIs("DETERMINISTIC") || p.curIs(token.NOT) || p.wordIs("CONTAINS") || p.wordIs("READS") || p.curIs(token.NO) || p.wordIs("SQL") {
		if p.wordIs("DETERMINISTIC") {
			deterministic = true
			p.advance()
			continue
		}
		if p.curIs(token.NOT) {
			p.advance()
			if p.wordIs("DETERMINISTIC") {
				deterministic = false
				p.advance()
			}
			continue
		}
		// skip characteristic clauses this engine does not model
		// (CONTAINS SQL / READS SQL DATA / NO SQL), one word at a time.
		p.advance()
	}
	body, err := p.parseRoutineBody()
	if err != nil {
		return nil, err
	}
	return &ast.CreateFunctionStatement{Name: name.Lexeme, Params: params, ReturnType: retType, Deterministic: deterministic, Body: body, Base: astBase(pos)}, nil
}

func (p *Parser) parseCreateTrigger(pos ast.Pos) (ast.Statement, error) {
	p.advance() // TRIGGER
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	timing := ast.TriggerBefore
	if p.wordIs("AFTER") {
		timing = ast.TriggerAfter
		p.advance()
	} else if p.wordIs("BEFORE") {
		p.advance()
	} else {
		return nil, p.syntaxErrorf("expected BEFORE or AFTER in CREATE TRIGGER")
	}
	var event ast.TriggerEvent
	switch {
	case p.curIs(token.INSERT):
		event = ast.TriggerInsert
		p.advance()
	case p.curIs(token.UPDATE):
		event = ast.TriggerUpdate
		p.advance()
	case p.curIs(token.DELETE):
		event = ast.TriggerDelete
		p.advance()
	default:
		return nil, p.syntaxErrorf("expected INSERT, UPDATE, or DELETE in CREATE TRIGGER")
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FOR); err != nil {
		return nil, err
	}
	if !p.wordIs("EACH") {
		return nil, p.syntaxErrorf("expected FOR EACH ROW in CREATE TRIGGER")
	}
	p.advance()
	if _, err := p.expect(token.ROW); err != nil {
		return nil, err
	}
	body, err := p.parseRoutineBody()
	if err != nil {
		return nil, err
	}
	return &ast.CreateTriggerStatement{Name: name.Lexeme, Timing: timing, Event: event, Table: table, Body: body, Base: astBase(pos)}, nil
}

func (p *Parser) parseCreateEvent(pos ast.Pos) (ast.Statement, error) {
	p.advance() // EVENT
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	if !p.wordIs("SCHEDULE") {
		return nil, p.syntaxErrorf("expected ON SCHEDULE in CREATE EVENT")
	}
	p.advance()
	var sched []string
	for !p.curIs(token.DO) {
		if p.curIs(token.EOF) || p.curIs(token.SEMICOLON) {
			return nil, p.syntaxErrorf("expected DO in CREATE EVENT schedule")
		}
		sched = append(sched, p.cur.Lexeme)
		p.advance()
	}
	p.advance() // DO
	body, err := p.parseRoutineBody()
	if err != nil {
		return nil, err
	}
	return &ast.CreateEventStatement{Name: name.Lexeme, Schedule: strings.Join(sched, " "), Body: body, Base: astBase(pos)}, nil
}

// parseRoutineBody parses either a BEGIN...END compound block or a
// single statement, both valid procedure/trigger bodies in MySQL.
func (p *Parser) parseRoutineBody() ([]ast.Statement, error) {
	if p.curIs(token.BEGIN) {
		p.advance()
		var stmts []ast.Statement
		for !p.curIs(token.END) {
			stmt, err := p.parseBodyStatement()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			if p.curIs(token.SEMICOLON) {
				p.advance()
			}
		}
		p.advance() // END
		return stmts, nil
	}
	stmt, err := p.parseBodyStatement()
	if err != nil {
		return nil, err
	}
	return []ast.Statement{stmt}, nil
}

// parseBodyStatement parses one statement inside a routine body:
// either procedural control flow or any top-level SQL statement
// (spec.md §3 "procedure bodies admit the full statement grammar").
func (p *Parser) parseBodyStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case token.DECLARE:
		return p.parseDeclare()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement("")
	case token.REPEAT:
		return p.parseRepeatStatement("")
	case token.LOOP:
		return p.parseLoopStatement("")
	case token.LEAVE:
		return p.parseLeaveStatement()
	case token.ITERATE:
		return p.parseIterateStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.SET:
		return p.parseLocalAssignOrSet()
	case token.IDENT:
		if p.peekIs(token.COLON) {
			return p.parseLabeledLoop()
		}
		return p.ParseStatement()
	default:
		return p.ParseStatement()
	}
}

func (p *Parser) parseDeclare() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // DECLARE
	var names []string
	for {
		n, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Lexeme)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	typ, err := p.parseColumnType()
	if err != nil {
		return nil, err
	}
	decl := &ast.DeclareStatement{Names: names, Type: typ, Base: astBase(pos)}
	if p.curIs(token.DEFAULT) {
		p.advance()
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		decl.Default = val
		decl.HasDefault = true
	}
	return decl, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // IF
	stmt := &ast.IfStatement{Base: astBase(pos)}
	for {
		cond, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		body, err := p.parseStatementsUntil(token.ELSE, token.END)
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: cond, Body: body})
		if p.wordIs("ELSEIF") {
			p.advance()
			continue
		}
		break
	}
	if p.curIs(token.ELSE) {
		p.advance()
		elseBody, err := p.parseStatementsUntil(token.END)
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IF); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseStatementsUntil consumes body statements until the current
// token matches one of the stop kinds or is the word ELSEIF (which
// closes an IF arm), without consuming the stop token itself.
func (p *Parser) parseStatementsUntil(stops ...token.Kind) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for {
		for _, s := range stops {
			if p.curIs(s) {
				return stmts, nil
			}
		}
		if p.wordIs("ELSEIF") {
			return stmts, nil
		}
		if p.curIs(token.EOF) {
			return nil, p.syntaxErrorf("unexpected end of input in routine body")
		}
		stmt, err := p.parseBodyStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
	}
}

func (p *Parser) parseLabeledLoop() (ast.Statement, error) {
	label := p.cur.Lexeme
	p.advance() // label
	p.advance() // :
	switch p.cur.Kind {
	case token.WHILE:
		return p.parseWhileStatement(label)
	case token.REPEAT:
		return p.parseRepeatStatement(label)
	case token.LOOP:
		return p.parseLoopStatement(label)
	default:
		return nil, p.syntaxErrorf("expected WHILE, REPEAT, or LOOP after label")
	}
}

func (p *Parser) parseWhileStatement(label string) (ast.Statement, error) {
	pos := p.pos()
	p.advance() // WHILE
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.parseStatementsUntil(token.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Label: label, Cond: cond, Body: body, Base: astBase(pos)}, nil
}

func (p *Parser) parseRepeatStatement(label string) (ast.Statement, error) {
	pos := p.pos()
	p.advance() // REPEAT
	body, err := p.parseStatementsUntil(token.UNTIL)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.UNTIL); err != nil {
		return nil, err
	}
	until, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.REPEAT); err != nil {
		return nil, err
	}
	return &ast.RepeatStatement{Label: label, Body: body, Until: until, Base: astBase(pos)}, nil
}

func (p *Parser) parseLoopStatement(label string) (ast.Statement, error) {
	pos := p.pos()
	p.advance() // LOOP
	body, err := p.parseStatementsUntil(token.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LOOP); err != nil {
		return nil, err
	}
	return &ast.LoopStatement{Label: label, Body: body, Base: astBase(pos)}, nil
}

func (p *Parser) parseLeaveStatement() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // LEAVE
	label, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.LeaveStatement{Label: label.Lexeme, Base: astBase(pos)}, nil
}

func (p *Parser) parseIterateStatement() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // ITERATE
	label, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.IterateStatement{Label: label.Lexeme, Base: astBase(pos)}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // RETURN
	val, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Value: val, Base: astBase(pos)}, nil
}

// parseLocalAssignOrSet disambiguates `SET localvar = expr` (a routine
// body assignment) from the top-level SET statement forms; inside a
// routine body a single bare identifier target is always a local
// variable assignment since session/global targets require the
// `@@name`/`GLOBAL name` spellings handled by parseSet.
func (p *Parser) parseLocalAssignOrSet() (ast.Statement, error) {
	pos := p.pos()
	if p.peekIs(token.EQ) {
		p.advance() // SET
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStatement{Name: name.Lexeme, Value: val, Base: astBase(pos)}, nil
	}
	return p.parseSet()
}
