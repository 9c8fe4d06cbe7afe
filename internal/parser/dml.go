package parser

import (
	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

func (p *Parser) parseInsert() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // INSERT
	if _, err := p.expect(token.INTO); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	ins := &ast.InsertStatement{Table: table, Base: astBase(pos)}

	if p.curIs(token.LPAREN) {
		p.advance()
		for !p.curIs(token.RPAREN) {
			col, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			ins.Columns = append(ins.Columns, col.Lexeme)
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

	if p.curIs(token.VALUES) {
		p.advance()
		for {
			row, err := p.parseValueTuple()
			if err != nil {
				return nil, err
			}
			ins.Values = append(ins.Values, row)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	} else if p.curIs(token.SELECT) || p.curIs(token.WITH) {
		sel, err := p.parseSelectOrSetOp()
		if err != nil {
			return nil, err
		}
		ins.Select = sel
	} else {
		return nil, p.syntaxErrorf("expected VALUES or SELECT in INSERT statement")
	}

	if p.curIs(token.ON) {
		p.advance()
		if _, err := p.expect(token.DUPLICATE); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.KEY); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.UPDATE); err != nil {
			return nil, err
		}
		assigns, err := p.parseAssignmentList()
		if err != nil {
			return nil, err
		}
		ins.OnDupKey = assigns
	}
	return ins, nil
}

func (p *Parser) parseValueTuple() ([]ast.Expression, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var vals []ast.Expression
	for !p.curIs(token.RPAREN) {
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return vals, nil
}

func (p *Parser) parseAssignmentList() ([]ast.Assignment, error) {
	var assigns []ast.Assignment
	for {
		col, err := p.parseColumnName()
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
		assigns = append(assigns, ast.Assignment{Column: col, Value: val})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return assigns, nil
}

func (p *Parser) parseColumnName() (ast.ColumnName, error) {
	first, err := p.expect(token.IDENT)
	if err != nil {
		return ast.ColumnName{}, err
	}
	if p.curIs(token.DOT) {
		p.advance()
		second, err := p.expect(token.IDENT)
		if err != nil {
			return ast.ColumnName{}, err
		}
		return ast.ColumnName{Table: first.Lexeme, Name: second.Lexeme}, nil
	}
	return ast.ColumnName{Name: first.Lexeme}, nil
}

func (p *Parser) parseUpdate() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // UPDATE
	table, err := p.parseTableRefChain()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SET); err != nil {
		return nil, err
	}
	assigns, err := p.parseAssignmentList()
	if err != nil {
		return nil, err
	}
	upd := &ast.UpdateStatement{Table: table, Set: assigns, Base: astBase(pos)}
	if p.curIs(token.WHERE) {
		p.advance()
		where, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		upd.Where = where
	}
	if p.curIs(token.ORDER) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		items, err := p.parseOrderByItems()
		if err != nil {
			return nil, err
		}
		upd.OrderBy = items
	}
	if p.curIs(token.LIMIT) {
		p.advance()
		limit, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		upd.Limit = limit
	}
	return upd, nil
}

func (p *Parser) parseDelete() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // DELETE
	if _, err := p.expect(token.FROM); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	del := &ast.DeleteStatement{Table: table, Base: astBase(pos)}
	if p.curIs(token.WHERE) {
		p.advance()
		where, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		del.Where = where
	}
	if p.curIs(token.ORDER) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		items, err := p.parseOrderByItems()
		if err != nil {
			return nil, err
		}
		del.OrderBy = items
	}
	if p.curIs(token.LIMIT) {
		p.advance()
		limit, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		del.Limit = limit
	}
	return del, nil
}
