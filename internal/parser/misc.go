package parser

import (
	"strings"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

func (p *Parser) parseUse() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // USE
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.UseStatement{Database: name.Lexeme, Base: astBase(pos)}, nil
}

func (p *Parser) parseDescribe() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // DESCRIBE
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	return &ast.DescribeStatement{Table: table, Base: astBase(pos)}, nil
}

func (p *Parser) parseExplain() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // EXPLAIN
	target, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ExplainStatement{Target: target, Base: astBase(pos)}, nil
}

func (p *Parser) parseTxControl(kind ast.TxControlKind) (ast.Statement, error) {
	pos := p.pos()
	p.advance() // BEGIN / COMMIT / ROLLBACK
	if p.wordIs("WORK") {
		p.advance()
	}
	return &ast.TransactionStatement{Kind: kind, Base: astBase(pos)}, nil
}

func (p *Parser) parseStartTransaction() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // START
	if _, err := p.expect(token.TRANSACTION); err != nil {
		return nil, err
	}
	return &ast.TransactionStatement{Kind: ast.TxBegin, Base: astBase(pos)}, nil
}

func (p *Parser) parseSet() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // SET

	if p.curIs(token.TRANSACTION) {
		return p.parseSetTransaction(pos, false)
	}
	if p.wordIs("NAMES") {
		p.advance()
		charset, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.SetStatement{Kind: ast.SetVariable, VarName: "NAMES", VarScope: ast.VarScopeSession, Value: &ast.Literal{Kind: ast.LiteralString, Text: charset.Lexeme}, Base: astBase(pos)}, nil
	}
	if p.curIs(token.GLOBAL) {
		p.advance()
		if p.curIs(token.TRANSACTION) {
			return p.parseSetTransaction(pos, true)
		}
		return p.parseSetVariable(pos, ast.VarScopeGlobal)
	}
	if p.curIs(token.SESSION) {
		p.advance()
		if p.curIs(token.TRANSACTION) {
			return p.parseSetTransaction(pos, false)
		}
		return p.parseSetVariable(pos, ast.VarScopeSession)
	}
	if p.curIs(token.SYSVAR) {
		return p.parseSetSysVarTarget(pos)
	}
	return p.parseSetVariable(pos, ast.VarScopeSession)
}

func (p *Parser) parseSetSysVarTarget(pos ast.Pos) (ast.Statement, error) {
	name := p.cur.Lexeme
	p.advance() // @@...
	scope := ast.VarScopeSession
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "global."):
		scope = ast.VarScopeGlobal
		name = name[len("global."):]
	case strings.HasPrefix(lower, "session."):
		name = name[len("session."):]
	}
	if _, err := p.expect(token.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(name, "autocommit") {
		on := isTruthyLiteral(val)
		return &ast.SetStatement{Kind: ast.SetAutocommit, AutocommitOn: on, Base: astBase(pos)}, nil
	}
	return &ast.SetStatement{Kind: ast.SetVariable, VarName: name, VarScope: scope, Value: val, Base: astBase(pos)}, nil
}

func (p *Parser) parseSetVariable(pos ast.Pos, scope ast.VarScope) (ast.Statement, error) {
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
	if strings.EqualFold(name.Lexeme, "autocommit") {
		return &ast.SetStatement{Kind: ast.SetAutocommit, AutocommitOn: isTruthyLiteral(val), Base: astBase(pos)}, nil
	}
	return &ast.SetStatement{Kind: ast.SetVariable, VarName: name.Lexeme, VarScope: scope, Value: val, Base: astBase(pos)}, nil
}

func isTruthyLiteral(e ast.Expression) bool {
	lit, ok := e.(*ast.Literal)
	if !ok {
		return false
	}
	return lit.Text != "0" && !strings.EqualFold(lit.Text, "off") && !strings.EqualFold(lit.Text, "false")
}

func (p *Parser) parseSetTransaction(pos ast.Pos, global bool) (ast.Statement, error) {
	if _, err := p.expect(token.TRANSACTION); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ISOLATION); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LEVEL); err != nil {
		return nil, err
	}
	var level ast.IsolationLevel
	switch {
	case p.wordIs("READ"):
		p.advance()
		if p.wordIs("UNCOMMITTED") {
			level = ast.IsolationReadUncommitted
		} else if p.wordIs("COMMITTED") {
			level = ast.IsolationReadCommitted
		} else {
			return nil, p.syntaxErrorf("expected UNCOMMITTED or COMMITTED after READ")
		}
		p.advance()
	case p.wordIs("REPEATABLE"):
		p.advance()
		if !p.wordIs("READ") {
			return nil, p.syntaxErrorf("expected READ after REPEATABLE")
		}
		p.advance()
		level = ast.IsolationRepeatableRead
	case p.wordIs("SERIALIZABLE"):
		p.advance()
		level = ast.IsolationSerializable
	default:
		return nil, p.syntaxErrorf("expected isolation level name")
	}
	return &ast.SetStatement{Kind: ast.SetTransactionIsolation, Isolation: level, IsolationGlobal: global, Base: astBase(pos)}, nil
}

func (p *Parser) parseKill() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // KILL
	target := ast.KillConnection
	if p.curIs(token.CONNECTION) {
		p.advance()
	} else if p.wordIs("QUERY") {
		target = ast.KillQuery
		p.advance()
	}
	id, err := p.expect(token.INT)
	if err != nil {
		return nil, err
	}
	return &ast.KillStatement{Target: target, ConnectionID: uint64(atoiSafe(id.Lexeme)), Base: astBase(pos)}, nil
}

func (p *Parser) parsePrivilegeList() ([]ast.Privilege, error) {
	var privs []ast.Privilege
	for {
		if p.curIs(token.ALL) {
			p.advance()
			if p.wordIs("PRIVILEGES") {
				p.advance()
			}
			privs = append(privs, ast.Privilege{Name: "ALL"})
		} else {
			name, err := p.expect(token.IDENT)
			if err != nil {
				// keywords like SELECT/UPDATE/DELETE/INSERT are valid
				// privilege names too
				name = p.cur
				p.advance()
			}
			priv := ast.Privilege{Name: strings.ToUpper(name.Lexeme)}
			if p.curIs(token.LPAREN) {
				cols, err := p.parseColumnNameListParen()
				if err != nil {
					return nil, err
				}
				priv.Columns = cols
			}
			privs = append(privs, priv)
		}
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return privs, nil
}

func (p *Parser) parseGrant() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // GRANT
	privs, err := p.parsePrivilegeList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	db, table, err := p.parseGrantTarget()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.TO); err != nil {
		return nil, err
	}
	var grantees []string
	for {
		g, err := p.parseUserSpec()
		if err != nil {
			return nil, err
		}
		grantees = append(grantees, g)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	withGrant := false
	if p.curIs(token.WITH) {
		p.advance()
		if _, err := p.expect(token.GRANT); err != nil {
			return nil, err
		}
		if !p.wordIs("OPTION") {
			return nil, p.syntaxErrorf("expected OPTION after WITH GRANT")
		}
		p.advance()
		withGrant = true
	}
	return &ast.GrantStatement{Privileges: privs, Database: db, Table: table, Grantees: grantees, WithGrant: withGrant, Base: astBase(pos)}, nil
}

func (p *Parser) parseRevoke() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // REVOKE
	privs, err := p.parsePrivilegeList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	db, table, err := p.parseGrantTarget()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	var grantees []string
	for {
		g, err := p.parseUserSpec()
		if err != nil {
			return nil, err
		}
		grantees = append(grantees, g)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return &ast.RevokeStatement{Privileges: privs, Database: db, Table: table, Grantees: grantees, Base: astBase(pos)}, nil
}

// parseGrantTarget parses `*.*`, `db.*`, `db.table`, or a bare table
// name, returning ("*","*") style wildcards verbatim (spec.md §3
// "GRANT scope").
func (p *Parser) parseGrantTarget() (string, string, error) {
	first, err := p.parseGrantTargetPart()
	if err != nil {
		return "", "", err
	}
	if p.curIs(token.DOT) {
		p.advance()
		second, err := p.parseGrantTargetPart()
		if err != nil {
			return "", "", err
		}
		return first, second, nil
	}
	return "*", first, nil
}

func (p *Parser) parseGrantTargetPart() (string, error) {
	if p.curIs(token.ASTERISK) {
		p.advance()
		return "*", nil
	}
	t, err := p.expect(token.IDENT)
	if err != nil {
		return "", err
	}
	return t.Lexeme, nil
}

func (p *Parser) parseCall() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // CALL
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	call := &ast.CallStatement{Procedure: name.Lexeme, Base: astBase(pos)}
	if p.curIs(token.LPAREN) {
		p.advance()
		for !p.curIs(token.RPAREN) {
			arg, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	return call, nil
}

func (p *Parser) parseFlush() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // FLUSH
	switch {
	case p.curIs(token.TABLES):
		p.advance()
		var tables []ast.TableName
		if p.curIs(token.IDENT) {
			var err error
			tables, err = p.parseTableNameList()
			if err != nil {
				return nil, err
			}
		}
		return &ast.FlushStatement{Object: ast.FlushTables, Tables: tables, Base: astBase(pos)}, nil
	case p.wordIs("LOGS"):
		p.advance()
		return &ast.FlushStatement{Object: ast.FlushLogs, Base: astBase(pos)}, nil
	case p.wordIs("PRIVILEGES"):
		p.advance()
		return &ast.FlushStatement{Object: ast.FlushPrivileges, Base: astBase(pos)}, nil
	case p.wordIs("STATUS"):
		p.advance()
		return &ast.FlushStatement{Object: ast.FlushStatus, Base: astBase(pos)}, nil
	default:
		return nil, p.syntaxErrorf("unsupported FLUSH target %q", p.cur.Lexeme)
	}
}

func (p *Parser) parseLockTables() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // LOCK
	if _, err := p.expect(token.TABLES); err != nil {
		return nil, err
	}
	var locks []ast.LockTableItem
	for {
		table, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		mode := ast.LockRead
		switch {
		case p.wordIs("READ"):
			p.advance()
		case p.curIs(token.WRITE):
			mode = ast.LockWrite
			p.advance()
		default:
			return nil, p.syntaxErrorf("expected READ or WRITE in LOCK TABLES")
		}
		locks = append(locks, ast.LockTableItem{Table: table, Mode: mode})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return &ast.LockTablesStatement{Locks: locks, Base: astBase(pos)}, nil
}

func (p *Parser) parseUnlockTables() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // UNLOCK
	if _, err := p.expect(token.TABLES); err != nil {
		return nil, err
	}
	return &ast.UnlockTablesStatement{Base: astBase(pos)}, nil
}

func (p *Parser) parseShow() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // SHOW
	stmt := &ast.ShowStatement{Base: astBase(pos)}
	switch {
	case p.wordIs("DATABASES"):
		p.advance()
		stmt.Kind = ast.ShowDatabases
	case p.curIs(token.TABLES):
		p.advance()
		stmt.Kind = ast.ShowTables
		if db, ok := p.tryParseFromOrInDatabase(); ok {
			stmt.Database = db
		}
	case p.wordIs("COLUMNS"):
		p.advance()
		stmt.Kind = ast.ShowColumns
		table, err := p.expectFromOrInTable()
		if err != nil {
			return nil, err
		}
		stmt.Table = table
	case p.curIs(token.CREATE):
		p.advance()
		if _, err := p.expect(token.TABLE); err != nil {
			return nil, err
		}
		stmt.Kind = ast.ShowCreateTable
		table, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		stmt.Table = table.Lexeme
	case p.curIs(token.INDEX):
		p.advance()
		stmt.Kind = ast.ShowIndex
		table, err := p.expectFromOrInTable()
		if err != nil {
			return nil, err
		}
		stmt.Table = table
	case p.wordIs("STATUS"):
		p.advance()
		stmt.Kind = ast.ShowStatus
	case p.wordIs("VARIABLES"):
		p.advance()
		stmt.Kind = ast.ShowVariables
	case p.wordIs("WARNINGS"):
		p.advance()
		stmt.Kind = ast.ShowWarnings
	case p.wordIs("ERRORS"):
		p.advance()
		stmt.Kind = ast.ShowErrors
	case p.wordIs("PROCESSLIST"):
		p.advance()
		stmt.Kind = ast.ShowProcessList
	case p.wordIs("ENGINES"):
		p.advance()
		stmt.Kind = ast.ShowEngines
	case p.wordIs("CHARSET"):
		p.advance()
		stmt.Kind = ast.ShowCharset
	case p.wordIs("CHARACTER"):
		p.advance()
		if !p.wordIs("SET") {
			return nil, p.syntaxErrorf("expected SET after CHARACTER")
		}
		p.advance()
		stmt.Kind = ast.ShowCharset
	case p.wordIs("COLLATION"):
		p.advance()
		stmt.Kind = ast.ShowCollation
	case p.wordIs("GRANTS"):
		p.advance()
		stmt.Kind = ast.ShowGrants
		if p.curIs(token.FOR) {
			p.advance()
			user, err := p.parseUserSpec()
			if err != nil {
				return nil, err
			}
			stmt.Database = user
		}
	default:
		return nil, p.syntaxErrorf("unsupported SHOW form starting at %q", p.cur.Lexeme)
	}
	if p.curIs(token.LIKE) {
		p.advance()
		pat, err := p.expect(token.STRING)
		if err != nil {
			return nil, err
		}
		stmt.Like = pat.Lexeme
	} else if p.curIs(token.WHERE) {
		p.advance()
		where, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) tryParseFromOrInDatabase() (string, bool) {
	if p.curIs(token.FROM) || p.curIs(token.IN) {
		p.advance()
		if p.curIs(token.IDENT) {
			name := p.cur.Lexeme
			p.advance()
			return name, true
		}
	}
	return "", false
}

func (p *Parser) expectFromOrInTable() (string, error) {
	if !p.curIs(token.FROM) && !p.curIs(token.IN) {
		return "", p.syntaxErrorf("expected FROM or IN")
	}
	p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return "", err
	}
	return name.Lexeme, nil
}
