package parser

import (
	"strings"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

// wordIs reports whether the current token is an unreserved identifier
// spelling a particular word (MATCH, CHARSET, ENGINE, ...). Many MySQL
// clause introducers are not reserved words in spec.md's token set and
// so arrive as plain IDENT tokens.
func (p *Parser) wordIs(w string) bool {
	return p.curIs(token.IDENT) && strings.EqualFold(p.cur.Lexeme, w)
}

func (p *Parser) parseCreate() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // CREATE
	orReplace := false
	if p.curIs(token.OR) {
		p.advance()
		if !p.wordIs("REPLACE") {
			return nil, p.syntaxErrorf("expected REPLACE after OR")
		}
		p.advance()
		orReplace = true
	}
	switch {
	case p.curIs(token.TABLE):
		return p.parseCreateTable(pos)
	case p.curIs(token.DATABASE):
		return p.parseCreateDatabase(pos)
	case p.curIs(token.VIEW):
		return p.parseCreateView(pos, orReplace)
	case p.curIs(token.USER):
		return p.parseCreateUser(pos)
	case p.curIs(token.UNIQUE), p.curIs(token.FULLTEXT):
		return p.parseCreateIndex(pos)
	case p.curIs(token.INDEX):
		return p.parseCreateIndex(pos)
	case p.curIs(token.PROCEDURE):
		return p.parseCreateProcedure(pos)
	case p.curIs(token.FUNCTION):
		return p.parseCreateFunction(pos)
	case p.curIs(token.TRIGGER):
		return p.parseCreateTrigger(pos)
	case p.curIs(token.EVENT):
		return p.parseCreateEvent(pos)
	default:
		return nil, p.syntaxErrorf("unsupported CREATE form starting at %q", p.cur.Lexeme)
	}
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // DROP
	switch {
	case p.curIs(token.TABLE):
		p.advance()
		ifExists := p.consumeIfExists()
		tables, err := p.parseTableNameList()
		if err != nil {
			return nil, err
		}
		return &ast.DropTableStatement{Tables: tables, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.DATABASE):
		p.advance()
		ifExists := p.consumeIfExists()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropDatabaseStatement{Name: name.Lexeme, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.VIEW):
		p.advance()
		ifExists := p.consumeIfExists()
		tables, err := p.parseTableNameList()
		if err != nil {
			return nil, err
		}
		return &ast.DropViewStatement{Names: tables, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.USER):
		p.advance()
		ifExists := p.consumeIfExists()
		var users []string
		for {
			u, err := p.parseUserSpec()
			if err != nil {
				return nil, err
			}
			users = append(users, u)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		return &ast.DropUserStatement{Users: users, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.INDEX):
		p.advance()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ON); err != nil {
			return nil, err
		}
		table, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		return &ast.DropIndexStatement{Name: name.Lexeme, Table: table, Base: astBase(pos)}, nil
	case p.curIs(token.PROCEDURE):
		p.advance()
		ifExists := p.consumeIfExists()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropProcedureStatement{Name: name.Lexeme, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.FUNCTION):
		p.advance()
		ifExists := p.consumeIfExists()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropFunctionStatement{Name: name.Lexeme, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.TRIGGER):
		p.advance()
		ifExists := p.consumeIfExists()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropTriggerStatement{Name: name.Lexeme, IfExists: ifExists, Base: astBase(pos)}, nil
	case p.curIs(token.EVENT):
		p.advance()
		ifExists := p.consumeIfExists()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.DropEventStatement{Name: name.Lexeme, IfExists: ifExists, Base: astBase(pos)}, nil
	default:
		return nil, p.syntaxErrorf("unsupported DROP form starting at %q", p.cur.Lexeme)
	}
}

func (p *Parser) consumeIfExists() bool {
	if p.curIs(token.IF) {
		p.advance()
		if p.curIs(token.NOT) {
			p.advance()
		}
		p.advance() // EXISTS
		return true
	}
	return false
}

func (p *Parser) parseTableNameList() ([]ast.TableName, error) {
	var names []ast.TableName
	for {
		n, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

func (p *Parser) parseCreateTable(pos ast.Pos) (ast.Statement, error) {
	p.advance() // TABLE
	ifNotExists := p.consumeIfExists()
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &ast.CreateTableStatement{Table: table, IfNotExists: ifNotExists, Base: astBase(pos)}

	if p.curIs(token.LIKE) {
		p.advance()
		like, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		stmt.LikeTable = &like
		p.skipTrailingTableOptions()
		return stmt, nil
	}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	for !p.curIs(token.RPAREN) {
		if p.isIndexIntroducer() {
			idx, err := p.parseIndexDef()
			if err != nil {
				return nil, err
			}
			stmt.Indexes = append(stmt.Indexes, idx)
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	p.skipTrailingTableOptions()
	return stmt, nil
}

// skipTrailingTableOptions discards ENGINE=/CHARSET=/COMMENT= and
// similar table options, which the executor collaborator has no use
// for (spec.md §1 storage concerns are out of scope).
func (p *Parser) skipTrailingTableOptions() {
	for !p.curIs(token.SEMICOLON) && !p.curIs(token.EOF) {
		p.advance()
	}
}

func (p *Parser) isIndexIntroducer() bool {
	switch p.cur.Kind {
	case token.PRIMARY, token.UNIQUE, token.INDEX, token.KEY, token.FULLTEXT, token.CONSTRAINT, token.FOREIGN:
		return true
	}
	return false
}

func (p *Parser) parseIndexDef() (ast.IndexDef, error) {
	switch {
	case p.curIs(token.PRIMARY):
		p.advance()
		if _, err := p.expect(token.KEY); err != nil {
			return ast.IndexDef{}, err
		}
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		return ast.IndexDef{Kind: ast.IndexPrimary, Columns: cols}, nil
	case p.curIs(token.UNIQUE):
		p.advance()
		if p.curIs(token.KEY) || p.curIs(token.INDEX) {
			p.advance()
		}
		name := p.optionalIdentName()
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		return ast.IndexDef{Kind: ast.IndexUnique, Name: name, Columns: cols}, nil
	case p.curIs(token.FULLTEXT):
		p.advance()
		if p.curIs(token.KEY) || p.curIs(token.INDEX) {
			p.advance()
		}
		name := p.optionalIdentName()
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		return ast.IndexDef{Kind: ast.IndexFulltext, Name: name, Columns: cols}, nil
	case p.curIs(token.INDEX), p.curIs(token.KEY):
		p.advance()
		name := p.optionalIdentName()
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		return ast.IndexDef{Kind: ast.IndexPlain, Name: name, Columns: cols}, nil
	case p.curIs(token.CONSTRAINT), p.curIs(token.FOREIGN):
		if p.curIs(token.CONSTRAINT) {
			p.advance()
			p.optionalIdentName()
		}
		if _, err := p.expect(token.FOREIGN); err != nil {
			return ast.IndexDef{}, err
		}
		if _, err := p.expect(token.KEY); err != nil {
			return ast.IndexDef{}, err
		}
		name := p.optionalIdentName()
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		if _, err := p.expect(token.REFERENCES); err != nil {
			return ast.IndexDef{}, err
		}
		refTable, err := p.parseTableName()
		if err != nil {
			return ast.IndexDef{}, err
		}
		refCols, err := p.parseColumnNameListParen()
		if err != nil {
			return ast.IndexDef{}, err
		}
		fk := &ast.ForeignKeyRef{Table: refTable, Columns: refCols}
		for p.curIs(token.ON) {
			p.advance()
			action, err := p.parseReferentialAction()
			if err != nil {
				return ast.IndexDef{}, err
			}
			if p.lastOnDeleteClause {
				fk.OnDelete = action
			} else {
				fk.OnUpdate = action
			}
		}
		return ast.IndexDef{Kind: ast.IndexForeign, Name: name, Columns: cols, ForeignKey: fk}, nil
	}
	return ast.IndexDef{}, p.syntaxErrorf("expected index definition, got %q", p.cur.Lexeme)
}

func (p *Parser) parseReferentialAction() (ast.ReferentialAction, error) {
	isDelete := false
	switch {
	case p.curIs(token.DELETE):
		isDelete = true
		p.advance()
	case p.curIs(token.UPDATE):
		p.advance()
	default:
		return 0, p.syntaxErrorf("expected DELETE or UPDATE after ON")
	}
	p.lastOnDeleteClause = isDelete
	switch {
	case p.curIs(token.RESTRICT):
		p.advance()
		return ast.ActionRestrict, nil
	case p.curIs(token.CASCADE):
		p.advance()
		return ast.ActionCascade, nil
	case p.curIs(token.SET):
		p.advance()
		if p.curIs(token.NULL) {
			p.advance()
			return ast.ActionSetNull, nil
		}
		if _, err := p.expect(token.DEFAULT); err != nil {
			return 0, err
		}
		return ast.ActionSetDefault, nil
	case p.curIs(token.NO):
		p.advance()
		if _, err := p.expect(token.ACTION); err != nil {
			return 0, err
		}
		return ast.ActionNoAction, nil
	default:
		return 0, p.syntaxErrorf("expected referential action after ON DELETE/UPDATE")
	}
}

func (p *Parser) optionalIdentName() string {
	if p.curIs(token.IDENT) {
		name := p.cur.Lexeme
		p.advance()
		return name
	}
	return ""
}

func (p *Parser) parseColumnNameListParen() ([]string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var cols []string
	for !p.curIs(token.RPAREN) {
		col, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col.Lexeme)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return cols, nil
}

func (p *Parser) parseColumnDef() (ast.ColumnDef, error) {
	name, err := p.expect(token.IDENT)
	if err != nil {
		return ast.ColumnDef{}, err
	}
	ct, err := p.parseColumnType()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	col := ast.ColumnDef{Name: name.Lexeme, Type: ct}
	for {
		switch {
		case p.curIs(token.NOT):
			p.advance()
			if _, err := p.expect(token.NULL); err != nil {
				return ast.ColumnDef{}, err
			}
			col.NotNull = true
		case p.curIs(token.NULL):
			p.advance()
		case p.curIs(token.DEFAULT):
			p.advance()
			val, err := p.parseExpression(precAdditive)
			if err != nil {
				return ast.ColumnDef{}, err
			}
			col.Default = val
			col.HasDefault = true
		case p.curIs(token.PRIMARY):
			p.advance()
			if _, err := p.expect(token.KEY); err != nil {
				return ast.ColumnDef{}, err
			}
			col.PrimaryKey = true
		case p.curIs(token.UNIQUE):
			p.advance()
			if p.curIs(token.KEY) {
				p.advance()
			}
			col.Unique = true
		case p.wordIs("AUTO_INCREMENT"):
			p.advance()
			col.AutoIncrement = true
		case p.wordIs("COMMENT"):
			p.advance()
			text, err := p.expect(token.STRING)
			if err != nil {
				return ast.ColumnDef{}, err
			}
			col.Comment = text.Lexeme
		case p.wordIs("CHARACTER"):
			p.advance()
			if _, err := p.expect(token.SET); err != nil {
				return ast.ColumnDef{}, err
			}
			name, err := p.expect(token.IDENT)
			if err != nil {
				return ast.ColumnDef{}, err
			}
			col.Charset = name.Lexeme
		case p.wordIs("COLLATE"):
			p.advance()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return ast.ColumnDef{}, err
			}
			col.Collate = name.Lexeme
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseColumnType() (ast.ColumnType, error) {
	name, err := p.expect(token.IDENT)
	if err != nil {
		return ast.ColumnType{}, err
	}
	ct := ast.ColumnType{Name: strings.ToUpper(name.Lexeme)}
	if p.curIs(token.LPAREN) {
		p.advance()
		first, err := p.expect(token.INT)
		if err != nil {
			return ast.ColumnType{}, err
		}
		ct.Length = atoiSafe(first.Lexeme)
		ct.HasLength = true
		if p.curIs(token.COMMA) {
			p.advance()
			second, err := p.expect(token.INT)
			if err != nil {
				return ast.ColumnType{}, err
			}
			ct.Precision = ct.Length
			ct.Scale = atoiSafe(second.Lexeme)
			ct.HasScale = true
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return ast.ColumnType{}, err
		}
	}
	if p.wordIs("UNSIGNED") {
		p.advance()
		ct.Unsigned = true
	}
	return ct, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func (p *Parser) parseCreateDatabase(pos ast.Pos) (ast.Statement, error) {
	p.advance() // DATABASE
	ifNotExists := p.consumeIfExists()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	p.skipTrailingTableOptions()
	return &ast.CreateDatabaseStatement{Name: name.Lexeme, IfNotExists: ifNotExists, Base: astBase(pos)}, nil
}

func (p *Parser) parseCreateView(pos ast.Pos, orReplace bool) (ast.Statement, error) {
	p.advance() // VIEW
	name, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &ast.CreateViewStatement{Name: name, OrReplace: orReplace, Base: astBase(pos)}
	if p.curIs(token.LPAREN) {
		cols, err := p.parseColumnNameListParen()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}
	if _, err := p.expect(token.AS); err != nil {
		return nil, err
	}
	sel, err := p.parseSelectOrSetOp()
	if err != nil {
		return nil, err
	}
	stmt.Select = sel
	return stmt, nil
}

func (p *Parser) parseCreateUser(pos ast.Pos) (ast.Statement, error) {
	p.advance() // USER
	ifNotExists := p.consumeIfExists()
	userTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	stmt := &ast.CreateUserStatement{User: userTok.Lexeme, Host: "%", IfNotExists: ifNotExists, Base: astBase(pos)}
	if p.curIs(token.AT) {
		p.advance()
		host, err := p.expect(token.STRING)
		if err != nil {
			host, err = p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
		}
		stmt.Host = host.Lexeme
	}
	if p.wordIs("IDENTIFIED") {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		pw, err := p.expect(token.STRING)
		if err != nil {
			return nil, err
		}
		stmt.Password = pw.Lexeme
		stmt.HasPassword = true
	}
	return stmt, nil
}

func (p *Parser) parseUserSpec() (string, error) {
	u, err := p.expect(token.IDENT)
	if err != nil {
		return "", err
	}
	name := u.Lexeme
	if p.curIs(token.AT) {
		p.advance()
		host, err := p.expect(token.IDENT)
		if err != nil {
			host, err = p.expect(token.STRING)
			if err != nil {
				return "", err
			}
		}
		name = name + "@" + host.Lexeme
	}
	return name, nil
}

func (p *Parser) parseCreateIndex(pos ast.Pos) (ast.Statement, error) {
	kind := ast.IndexPlain
	if p.curIs(token.UNIQUE) {
		kind = ast.IndexUnique
		p.advance()
	} else if p.curIs(token.FULLTEXT) {
		kind = ast.IndexFulltext
		p.advance()
	}
	if _, err := p.expect(token.INDEX); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseColumnNameListParen()
	if err != nil {
		return nil, err
	}
	return &ast.CreateIndexStatement{Index: ast.IndexDef{Kind: kind, Name: name.Lexeme, Columns: cols}, Table: table, Base: astBase(pos)}, nil
}

func (p *Parser) parseAlterTable() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // ALTER
	if _, err := p.expect(token.TABLE); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &ast.AlterTableStatement{Table: table, Base: astBase(pos)}
	for {
		action, err := p.parseAlterAction()
		if err != nil {
			return nil, err
		}
		stmt.Actions = append(stmt.Actions, action)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *Parser) parseAlterAction() (ast.AlterAction, error) {
	switch {
	case p.curIs(token.ADD):
		p.advance()
		if p.isIndexIntroducer() {
			idx, err := p.parseIndexDef()
			if err != nil {
				return nil, err
			}
			return ast.AddIndexAction{Index: idx}, nil
		}
		if p.curIs(token.COLUMN) {
			p.advance()
		}
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		return ast.AddColumnAction{Column: col}, nil
	case p.curIs(token.DROP):
		p.advance()
		if p.curIs(token.COLUMN) {
			p.advance()
		}
		if p.curIs(token.INDEX) || p.curIs(token.KEY) {
			p.advance()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			return ast.DropIndexAction{Name: name.Lexeme}, nil
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return ast.DropColumnAction{Name: name.Lexeme}, nil
	case p.curIs(token.RENAME):
		p.advance()
		if p.curIs(token.COLUMN) {
			p.advance()
			from, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.TO); err != nil {
				return nil, err
			}
			to, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			return ast.RenameColumnAction{From: from.Lexeme, To: to.Lexeme}, nil
		}
		if p.curIs(token.TO) {
			p.advance()
		}
		to, err := p.parseTableName()
		if err != nil {
			return nil, err
		}
		return ast.RenameTableAction{To: to}, nil
	case p.curIs(token.MODIFY):
		p.advance()
		if p.curIs(token.COLUMN) {
			p.advance()
		}
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		return ast.ModifyColumnAction{Column: col}, nil
	default:
		return nil, p.syntaxErrorf("unsupported ALTER TABLE action starting at %q", p.cur.Lexeme)
	}
}

func (p *Parser) parseAnalyzeTable() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // ANALYZE
	if _, err := p.expect(token.TABLE); err != nil {
		return nil, err
	}
	tables, err := p.parseTableNameList()
	if err != nil {
		return nil, err
	}
	return &ast.AnalyzeTableStatement{Tables: tables, Base: astBase(pos)}, nil
}

func (p *Parser) parseOptimizeTable() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // OPTIMIZE
	if _, err := p.expect(token.TABLE); err != nil {
		return nil, err
	}
	tables, err := p.parseTableNameList()
	if err != nil {
		return nil, err
	}
	return &ast.OptimizeTableStatement{Tables: tables, Base: astBase(pos)}, nil
}
