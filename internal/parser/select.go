package parser

import (
	"strings"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

// parseSelectOrSetOp parses a WITH clause (if present), the first
// SELECT, and any chained UNION/INTERSECT/EXCEPT arms, left-associative
// (spec.md §4.2 "Set operations").
func (p *Parser) parseSelectOrSetOp() (*ast.SelectStatement, error) {
	pos := p.pos()
	var ctes []ast.CTE
	if p.curIs(token.WITH) {
		var err error
		ctes, err = p.parseCTEList()
		if err != nil {
			return nil, err
		}
	}

	sel, err := p.parseSelect(pos)
	if err != nil {
		return nil, err
	}
	sel.CTEs = ctes

	for p.curIs(token.UNION) || p.curIs(token.INTERSECT) || p.curIs(token.EXCEPT) {
		var kind ast.SetOpKind
		switch p.cur.Kind {
		case token.UNION:
			kind = ast.SetOpUnion
		case token.INTERSECT:
			kind = ast.SetOpIntersect
		case token.EXCEPT:
			kind = ast.SetOpExcept
		}
		p.advance()
		all := false
		if p.curIs(token.ALL) {
			all = true
			p.advance()
		} else if p.curIs(token.DISTINCT) {
			p.advance()
		}
		armPos := p.pos()
		arm, err := p.parseSelect(armPos)
		if err != nil {
			return nil, err
		}
		sel.Combinations = append(sel.Combinations, ast.SetOpArm{Kind: kind, All: all, Query: arm})
	}
	return sel, nil
}

func (p *Parser) parseCTEList() ([]ast.CTE, error) {
	p.advance() // WITH
	recursive := false
	if p.curIs(token.IDENT) && strings.EqualFold(p.cur.Lexeme, "RECURSIVE") {
		recursive = true
		p.advance()
	}
	var ctes []ast.CTE
	for {
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		cte := ast.CTE{Name: name.Lexeme, Recursive: recursive}
		if p.curIs(token.LPAREN) {
			p.advance()
			for !p.curIs(token.RPAREN) {
				col, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				cte.Columns = append(cte.Columns, col.Lexeme)
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
		if _, err := p.expect(token.AS); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		sel, err := p.parseSelectOrSetOp()
		if err != nil {
			return nil, err
		}
		cte.Select = sel
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		ctes = append(ctes, cte)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return ctes, nil
}

func (p *Parser) parseSelect(pos ast.Pos) (*ast.SelectStatement, error) {
	if _, err := p.expect(token.SELECT); err != nil {
		return nil, err
	}
	sel := &ast.SelectStatement{Base: astBase(pos)}

	if p.curIs(token.DISTINCT) {
		sel.Distinct = true
		p.advance()
	} else if p.curIs(token.ALL) {
		p.advance()
	}

	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	sel.Items = items

	if p.curIs(token.FROM) {
		p.advance()
		from, err := p.parseTableRefChain()
		if err != nil {
			return nil, err
		}
		sel.From = from
	}

	if p.curIs(token.WHERE) {
		p.advance()
		where, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		sel.Where = where
	}

	if p.curIs(token.GROUP) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return nil, err
		}
		gb := &ast.GroupBy{}
		for {
			e, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			gb.Items = append(gb.Items, e)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if p.curIs(token.WITH) {
			p.advance()
			if !p.wordIs("ROLLUP") {
				return nil, p.syntaxErrorf("expected ROLLUP after WITH")
			}
			p.advance()
			gb.WithRollup = true
		}
		sel.GroupBy = gb
	}

	if p.curIs(token.HAVING) {
		p.advance()
		having, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		sel.Having = having
	}

	if p.wordIs("WINDOW") {
		p.advance()
		for {
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.AS); err != nil {
				return nil, err
			}
			spec, err := p.parseWindowSpec()
			if err != nil {
				return nil, err
			}
			sel.Windows = append(sel.Windows, ast.NamedWindow{Name: name.Lexeme, Spec: spec})
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
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
		sel.OrderBy = items
	}

	if p.curIs(token.LIMIT) {
		if err := p.parseLimitOffset(sel); err != nil {
			return nil, err
		}
	}

	if p.curIs(token.FOR) || p.curIs(token.LOCK) {
		if err := p.parseLockingClause(sel); err != nil {
			return nil, err
		}
	}

	return sel, nil
}

// parseLimitOffset handles both `LIMIT a, b` (a=offset, b=limit) and
// `LIMIT b OFFSET a`, producing the same AST shape for both
// (spec.md §8 invariant 4).
func (p *Parser) parseLimitOffset(sel *ast.SelectStatement) error {
	p.advance() // LIMIT
	first, err := p.parseExpression(precAdditive)
	if err != nil {
		return err
	}
	if p.curIs(token.COMMA) {
		p.advance()
		second, err := p.parseExpression(precAdditive)
		if err != nil {
			return err
		}
		sel.Offset = first
		sel.Limit = second
		return nil
	}
	sel.Limit = first
	if p.curIs(token.OFFSET) {
		p.advance()
		offset, err := p.parseExpression(precAdditive)
		if err != nil {
			return err
		}
		sel.Offset = offset
	}
	return nil
}

// parseLockingClause handles both the modern `FOR UPDATE|SHARE
// [OF list] [NOWAIT|SKIP LOCKED]` grammar and the classical
// `LOCK IN SHARE MODE` spelling spec.md §4.2 treats as synonymous
// with FOR SHARE.
func (p *Parser) parseLockingClause(sel *ast.SelectStatement) error {
	if p.curIs(token.LOCK) {
		p.advance() // LOCK
		if _, err := p.expect(token.IN); err != nil {
			return err
		}
		if _, err := p.expect(token.SHARE); err != nil {
			return err
		}
		if _, err := p.expect(token.MODE); err != nil {
			return err
		}
		sel.Locking.Kind = ast.LockingForShare
		return nil
	}

	p.advance() // FOR
	switch {
	case p.curIs(token.UPDATE):
		p.advance()
		sel.Locking.Kind = ast.LockingForUpdate
	case p.curIs(token.SHARE):
		p.advance()
		sel.Locking.Kind = ast.LockingForShare
	default:
		return p.syntaxErrorf("expected UPDATE or SHARE after FOR")
	}
	if p.curIs(token.OF) {
		p.advance()
		tables, err := p.parseTableNameList()
		if err != nil {
			return err
		}
		sel.Locking.Of = tables
	}
	if p.curIs(token.NOWAIT) {
		p.advance()
		sel.Locking.Wait = ast.WaitNoWait
	} else if p.curIs(token.SKIPPED) {
		p.advance()
		if _, err := p.expect(token.LOCKED); err != nil {
			return err
		}
		sel.Locking.Wait = ast.WaitSkipLocked
	}
	return nil
}

func (p *Parser) parseSelectItems() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseSelectItem() (ast.SelectItem, error) {
	if p.curIs(token.ASTERISK) {
		p.advance()
		return ast.SelectItem{Star: true}, nil
	}
	if p.curIs(token.IDENT) && p.peekIs(token.DOT) {
		table := p.cur.Lexeme
		p.advance()
		p.advance() // .
		if p.curIs(token.ASTERISK) {
			p.advance()
			return ast.SelectItem{Star: true, Table: table}, nil
		}
		// not star: rebuild as a normal expression starting from the
		// qualified column already partially consumed
		col, err := p.expect(token.IDENT)
		if err != nil {
			return ast.SelectItem{}, err
		}
		expr, err := p.parseExpressionFrom(&ast.ColumnRef{Table: table, Name: col.Lexeme}, precLowest)
		if err != nil {
			return ast.SelectItem{}, err
		}
		return p.finishSelectItem(expr)
	}
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return ast.SelectItem{}, err
	}
	return p.finishSelectItem(expr)
}

func (p *Parser) finishSelectItem(expr ast.Expression) (ast.SelectItem, error) {
	item := ast.SelectItem{Expr: expr}
	if p.curIs(token.AS) {
		p.advance()
		alias, err := p.expect(token.IDENT)
		if err != nil {
			return ast.SelectItem{}, err
		}
		item.Alias = alias.Lexeme
	} else if p.curIs(token.IDENT) {
		item.Alias = p.cur.Lexeme
		p.advance()
	}
	return item, nil
}

// parseTableRefChain parses the FROM clause: a comma-separated list of
// table references (implicit cross join), each of which may itself be
// a chain of explicit JOINs (spec.md §3 TableRef).
func (p *Parser) parseTableRefChain() (ast.TableRef, error) {
	left, err := p.parseJoinChain()
	if err != nil {
		return nil, err
	}
	for p.curIs(token.COMMA) {
		pos := p.pos()
		p.advance()
		right, err := p.parseJoinChain()
		if err != nil {
			return nil, err
		}
		left = &ast.JoinRef{Kind: ast.JoinCross, Left: left, Right: right, Base: astBase(pos)}
	}
	return left, nil
}

func (p *Parser) parseJoinChain() (ast.TableRef, error) {
	left, err := p.parseSingleTableRef()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.pos()
		kind, ok, err := p.tryParseJoinKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseSingleTableRef()
		if err != nil {
			return nil, err
		}
		join := &ast.JoinRef{Kind: kind, Left: left, Right: right, Base: astBase(pos)}
		if kind != ast.JoinCross && kind != ast.JoinNatural {
			if p.curIs(token.ON) {
				p.advance()
				on, err := p.parseExpression(precLowest)
				if err != nil {
					return nil, err
				}
				join.On = on
				join.HasOn = true
			} else if p.curIs(token.USING) {
				p.advance()
				if _, err := p.expect(token.LPAREN); err != nil {
					return nil, err
				}
				for !p.curIs(token.RPAREN) {
					col, err := p.expect(token.IDENT)
					if err != nil {
						return nil, err
					}
					join.Using = append(join.Using, ast.ColumnName{Name: col.Lexeme})
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
		}
		left = join
	}
}

func (p *Parser) tryParseJoinKeyword() (ast.JoinKind, bool, error) {
	switch p.cur.Kind {
	case token.JOIN:
		p.advance()
		return ast.JoinInner, true, nil
	case token.INNER:
		p.advance()
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinInner, true, nil
	case token.CROSS:
		p.advance()
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinCross, true, nil
	case token.LEFT:
		p.advance()
		if p.curIs(token.OUTER) {
			p.advance()
		}
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinLeft, true, nil
	case token.RIGHT:
		p.advance()
		if p.curIs(token.OUTER) {
			p.advance()
		}
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinRight, true, nil
	case token.FULL:
		p.advance()
		if p.curIs(token.OUTER) {
			p.advance()
		}
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinFull, true, nil
	case token.NATURAL:
		p.advance()
		if _, err := p.expect(token.JOIN); err != nil {
			return 0, true, err
		}
		return ast.JoinNatural, true, nil
	default:
		return 0, false, nil
	}
}

func (p *Parser) parseSingleTableRef() (ast.TableRef, error) {
	pos := p.pos()
	if p.curIs(token.LPAREN) {
		p.advance()
		sel, err := p.parseSelectOrSetOp()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if p.curIs(token.AS) {
			p.advance()
		}
		alias, err := p.expect(token.IDENT)
		if err != nil {
			return nil, p.syntaxErrorf("derived table requires an alias")
		}
		return &ast.DerivedTableRef{Select: sel, Alias: alias.Lexeme, Base: astBase(pos)}, nil
	}

	name, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	if p.curIs(token.AS) {
		p.advance()
		alias, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		name.Alias = alias.Lexeme
	} else if p.curIs(token.IDENT) {
		name.Alias = p.cur.Lexeme
		p.advance()
	}
	return &ast.BaseTableRef{Table: name, Base: astBase(pos)}, nil
}

func (p *Parser) parseTableName() (ast.TableName, error) {
	first, err := p.expect(token.IDENT)
	if err != nil {
		return ast.TableName{}, err
	}
	if p.curIs(token.DOT) {
		p.advance()
		second, err := p.expect(token.IDENT)
		if err != nil {
			return ast.TableName{}, err
		}
		return ast.TableName{Schema: first.Lexeme, Name: second.Lexeme}, nil
	}
	return ast.TableName{Name: first.Lexeme}, nil
}
