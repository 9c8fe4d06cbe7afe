package parser

import (
	"strings"

	"github.com/lKGreat/cyscaledb/internal/ast"
	"github.com/lKGreat/cyscaledb/internal/token"
)

// parseExpression implements the Pratt prefix/infix loop, grounded on
// parser.go's parseExpression in the pack's T-SQL parser.
func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	return p.parseExpressionFrom(left, precedence)
}

// parseExpressionFrom continues the Pratt loop from an already-parsed
// left operand, used when the caller has hand-disambiguated the prefix
// (e.g. a qualified `table.column` select item) but still wants
// trailing infix operators applied.
func (p *Parser) parseExpressionFrom(left ast.Expression, precedence int) (ast.Expression, error) {
	var err error
	for !p.curIs(token.SEMICOLON) && precedence < p.curPrecedenceForInfix() {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// curPrecedenceForInfix looks at p.cur because parseInfix consumes the
// operator itself (unlike peek-based designs); the caller loop checks
// the *current* token's precedence before dispatching.
func (p *Parser) curPrecedenceForInfix() int {
	if pr, ok := precedences[p.cur.Kind]; ok {
		return pr
	}
	if p.cur.Kind == token.NOT || p.cur.Kind == token.BETWEEN || p.cur.Kind == token.IN || p.cur.Kind == token.LIKE || p.cur.Kind == token.IS {
		return precCompare
	}
	return precLowest
}

func (p *Parser) parsePrefix() (ast.Expression, error) {
	switch p.cur.Kind {
	case token.INT:
		return p.parseLiteral(ast.LiteralInt)
	case token.FLOAT:
		return p.parseLiteral(ast.LiteralFloat)
	case token.STRING:
		return p.parseLiteral(ast.LiteralString)
	case token.NULL:
		return p.parseLiteral(ast.LiteralNull)
	case token.SYSVAR:
		return p.parseSysVar()
	case token.MINUS:
		return p.parseUnary(ast.OpNeg)
	case token.TILDE:
		return p.parseUnary(ast.OpBitNot)
	case token.NOT:
		return p.parseUnary(ast.OpNot)
	case token.BINARY:
		return p.parseUnary(ast.OpBinaryCast)
	case token.LPAREN:
		return p.parseParenExpr()
	case token.CASE:
		return p.parseCase()
	case token.EXISTS:
		return p.parseExists()
	case token.MATCH:
		return p.parseMatchAgainst()
	case token.ASTERISK:
		pos := p.pos()
		p.advance()
		return &ast.FuncCall{Base: astBase(pos), Star: true}, nil
	case token.IDENT:
		return p.parseIdentOrCallOrColumn()
	default:
		return nil, p.syntaxErrorf("unexpected token %q in expression", p.cur.Lexeme)
	}
}

func astBase(pos ast.Pos) ast.Base { return ast.Base{Pos: pos} }

func (p *Parser) parseLiteral(kind ast.LiteralKind) (ast.Expression, error) {
	pos := p.pos()
	text := p.cur.Lexeme
	p.advance()
	return &ast.Literal{Kind: kind, Text: text, Base: astBase(pos)}, nil
}

func (p *Parser) parseSysVar() (ast.Expression, error) {
	pos := p.pos()
	name := p.cur.Lexeme
	p.advance()
	scope := ast.VarScopeSession
	rest := name
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "global.") {
		scope = ast.VarScopeGlobal
		rest = name[len("global."):]
	} else if strings.HasPrefix(lower, "session.") {
		scope = ast.VarScopeSession
		rest = name[len("session."):]
	}
	return &ast.SystemVariable{Name: rest, Scope: scope, Base: astBase(pos)}, nil
}

func (p *Parser) parseUnary(op ast.UnaryOp) (ast.Expression, error) {
	pos := p.pos()
	p.advance()
	prec := precUnary
	if op == ast.OpNot {
		prec = precNot
	}
	operand, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Op: op, Operand: operand, Base: astBase(pos)}, nil
}

func (p *Parser) parseParenExpr() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // (
	if p.curIs(token.SELECT) || p.curIs(token.WITH) {
		sel, err := p.parseSelectOrSetOp()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Subquery{Select: sel, Base: astBase(pos)}, nil
	}
	inner, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return inner, nil
}

func (p *Parser) parseCase() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // CASE
	expr := &ast.CaseExpr{Base: astBase(pos)}
	if !p.curIs(token.WHEN) {
		operand, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		expr.Operand = operand
	}
	for p.curIs(token.WHEN) {
		p.advance()
		when, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		then, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		expr.Whens = append(expr.Whens, ast.CaseWhen{When: when, Then: then})
	}
	if p.curIs(token.ELSE) {
		p.advance()
		elseExpr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		expr.Else = elseExpr
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parseExists() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // EXISTS
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	sel, err := p.parseSelectOrSetOp()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.ExistsExpr{Subquery: &ast.Subquery{Select: sel, Base: astBase(pos)}, Base: astBase(pos)}, nil
}

func (p *Parser) parseMatchAgainst() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // MATCH
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var cols []ast.ColumnRef
	for {
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ast.ColumnRef{Name: name.Lexeme})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AGAINST); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	against, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	mode := ast.MatchNaturalLanguage
	if p.curIs(token.IN) {
		p.advance() // IN
		// BOOLEAN MODE / NATURAL LANGUAGE MODE spelled as identifiers here
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			if strings.EqualFold(p.cur.Lexeme, "boolean") {
				mode = ast.MatchBooleanMode
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.MatchAgainstExpr{Columns: cols, Against: against, Mode: mode, Base: astBase(pos)}, nil
}

// parseIdentOrCallOrColumn disambiguates a bare identifier, a
// table-qualified column, and a function call, including window
// functions via a trailing OVER clause (spec.md §4.2).
func (p *Parser) parseIdentOrCallOrColumn() (ast.Expression, error) {
	pos := p.pos()
	name := p.cur.Lexeme
	p.advance()

	if p.curIs(token.DOT) {
		p.advance()
		col, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.ColumnRef{Table: name, Name: col.Lexeme, Base: astBase(pos)}, nil
	}

	if p.curIs(token.LPAREN) {
		call, err := p.parseFuncCallArgs(name, pos)
		if err != nil {
			return nil, err
		}
		if p.curIs(token.OVER) {
			return p.parseWindowFunc(call, pos)
		}
		return call, nil
	}

	return &ast.ColumnRef{Name: name, Base: astBase(pos)}, nil
}

func (p *Parser) parseFuncCallArgs(name string, pos ast.Pos) (*ast.FuncCall, error) {
	p.advance() // (
	call := &ast.FuncCall{Name: name, Base: astBase(pos)}
	if p.curIs(token.DISTINCT) {
		call.Distinct = true
		p.advance()
	}
	if p.curIs(token.ASTERISK) {
		call.Star = true
		p.advance()
	} else {
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
		call.OrderBy = items
	}
	if p.curIs(token.SEPARATOR) {
		p.advance()
		sep, err := p.expect(token.STRING)
		if err != nil {
			return nil, err
		}
		call.HasSep = true
		call.Separator = sep.Lexeme
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseWindowFunc(call *ast.FuncCall, pos ast.Pos) (ast.Expression, error) {
	p.advance() // OVER
	spec, err := p.parseWindowSpec()
	if err != nil {
		return nil, err
	}
	return &ast.WindowFuncExpr{Func: call, Over: spec, Base: astBase(pos)}, nil
}

func (p *Parser) parseWindowSpec() (ast.WindowSpec, error) {
	var spec ast.WindowSpec
	if p.curIs(token.IDENT) {
		spec.NameRef = p.cur.Lexeme
		p.advance()
		return spec, nil
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return spec, err
	}
	if p.curIs(token.PARTITION) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return spec, err
		}
		for {
			e, err := p.parseExpression(precLowest)
			if err != nil {
				return spec, err
			}
			spec.PartitionBy = append(spec.PartitionBy, e)
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
			return spec, err
		}
		items, err := p.parseOrderByItems()
		if err != nil {
			return spec, err
		}
		spec.OrderBy = items
	}
	if p.curIs(token.ROWS) || p.curIs(token.RANGE) {
		spec.HasFrame = true
		if p.curIs(token.ROWS) {
			spec.FrameUnit = ast.FrameRows
		} else {
			spec.FrameUnit = ast.FrameRange
		}
		p.advance()
		if p.curIs(token.BETWEEN) {
			p.advance()
			start, err := p.parseFrameBound()
			if err != nil {
				return spec, err
			}
			spec.FrameStart = start
			if _, err := p.expect(token.AND); err != nil {
				return spec, err
			}
			end, err := p.parseFrameBound()
			if err != nil {
				return spec, err
			}
			spec.FrameEnd = end
		} else {
			start, err := p.parseFrameBound()
			if err != nil {
				return spec, err
			}
			spec.FrameStart = start
			spec.FrameEnd = ast.FrameBound{Kind: ast.BoundCurrentRow}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return spec, err
	}
	return spec, nil
}

func (p *Parser) parseFrameBound() (ast.FrameBound, error) {
	switch {
	case p.curIs(token.UNBOUNDED):
		p.advance()
		if p.curIs(token.PRECEDING) {
			p.advance()
			return ast.FrameBound{Kind: ast.BoundUnboundedPreceding}, nil
		}
		if _, err := p.expect(token.FOLLOWING); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.BoundUnboundedFollowing}, nil
	case p.curIs(token.CURRENT):
		p.advance()
		if _, err := p.expect(token.ROW); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.BoundCurrentRow}, nil
	default:
		offset, err := p.parseExpression(precAdditive)
		if err != nil {
			return ast.FrameBound{}, err
		}
		if p.curIs(token.PRECEDING) {
			p.advance()
			return ast.FrameBound{Kind: ast.BoundNPreceding, Offset: offset}, nil
		}
		if _, err := p.expect(token.FOLLOWING); err != nil {
			return ast.FrameBound{}, err
		}
		return ast.FrameBound{Kind: ast.BoundNFollowing, Offset: offset}, nil
	}
}

func (p *Parser) parseOrderByItems() ([]ast.OrderItem, error) {
	var items []ast.OrderItem
	for {
		e, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		item := ast.OrderItem{Expr: e}
		if p.curIs(token.DESC) {
			item.Desc = true
			p.advance()
		} else if p.curIs(token.ASC) {
			p.advance()
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

// parseInfix consumes the current operator token and builds the
// resulting node, handling the multi-keyword forms (NOT IN, IS NULL,
// BETWEEN ... AND, quantified comparisons) that a single-token lookup
// can't express directly.
func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	switch p.cur.Kind {
	case token.OR, token.AND, token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE,
		token.OR_BIT, token.CARET_BIT, token.AND_BIT, token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT:
		op, prec := p.binaryOpFor(p.cur.Kind)
		p.advance()
		if q, ok, err := p.maybeQuantifiedComparison(left, op, pos); ok || err != nil {
			return q, err
		}
		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: op, Left: left, Right: right, Base: astBase(pos)}, nil

	case token.ARROW, token.ARROW2:
		isDouble := p.curIs(token.ARROW2)
		p.advance()
		path, err := p.parseExpression(precPostfix)
		if err != nil {
			return nil, err
		}
		name := "JSON_EXTRACT"
		if isDouble {
			name = "JSON_UNQUOTE_EXTRACT"
		}
		return &ast.FuncCall{Name: name, Args: []ast.Expression{left, path}, Base: astBase(pos)}, nil

	case token.NOT:
		return p.parseNotInfix(left, pos)

	case token.IS:
		p.advance()
		not := false
		if p.curIs(token.NOT) {
			not = true
			p.advance()
		}
		if _, err := p.expect(token.NULL); err != nil {
			return nil, err
		}
		return &ast.IsNullExpr{Operand: left, Not: not, Base: astBase(pos)}, nil

	case token.IN:
		p.advance()
		return p.parseInTail(left, false, pos)

	case token.LIKE:
		p.advance()
		return p.parseLikeTail(left, false, pos)

	case token.BETWEEN:
		p.advance()
		return p.parseBetweenTail(left, false, pos)

	default:
		return nil, p.syntaxErrorf("unexpected infix operator %q", p.cur.Lexeme)
	}
}

func (p *Parser) binaryOpFor(k token.Kind) (ast.BinaryOp, int) {
	switch k {
	case token.OR:
		return ast.OpOr, precOr
	case token.AND:
		return ast.OpAnd, precAnd
	case token.EQ:
		return ast.OpEq, precCompare
	case token.NEQ:
		return ast.OpNeq, precCompare
	case token.LT:
		return ast.OpLt, precCompare
	case token.GT:
		return ast.OpGt, precCompare
	case token.LE:
		return ast.OpLe, precCompare
	case token.GE:
		return ast.OpGe, precCompare
	case token.OR_BIT:
		return ast.OpBitOr, precBitOr
	case token.CARET_BIT:
		return ast.OpBitXor, precBitXor
	case token.AND_BIT:
		return ast.OpBitAnd, precBitAnd
	case token.PLUS:
		return ast.OpAdd, precAdditive
	case token.MINUS:
		return ast.OpSub, precAdditive
	case token.ASTERISK:
		return ast.OpMul, precMultiplicative
	case token.SLASH:
		return ast.OpDiv, precMultiplicative
	case token.PERCENT:
		return ast.OpMod, precMultiplicative
	default:
		return 0, precLowest
	}
}

// maybeQuantifiedComparison recognizes `expr op ALL|ANY|SOME (subquery)`.
func (p *Parser) maybeQuantifiedComparison(left ast.Expression, op ast.BinaryOp, pos ast.Pos) (ast.Expression, bool, error) {
	var quant ast.QuantifierKind
	switch p.cur.Kind {
	case token.ALL:
		quant = ast.QuantAll
	case token.ANY:
		quant = ast.QuantAny
	case token.SOME:
		quant = ast.QuantSome
	default:
		return nil, false, nil
	}
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, true, err
	}
	sel, err := p.parseSelectOrSetOp()
	if err != nil {
		return nil, true, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, true, err
	}
	return &ast.QuantifiedComparison{
		Left: left, Op: op, Quantifier: quant,
		Subquery: &ast.Subquery{Select: sel, Base: astBase(pos)},
		Base:     astBase(pos),
	}, true, nil
}

func (p *Parser) parseNotInfix(left ast.Expression, pos ast.Pos) (ast.Expression, error) {
	p.advance() // NOT
	switch p.cur.Kind {
	case token.IN:
		p.advance()
		return p.parseInTail(left, true, pos)
	case token.LIKE:
		p.advance()
		return p.parseLikeTail(left, true, pos)
	case token.BETWEEN:
		p.advance()
		return p.parseBetweenTail(left, true, pos)
	default:
		return nil, p.syntaxErrorf("expected IN, LIKE, or BETWEEN after NOT, got %q", p.cur.Lexeme)
	}
}

func (p *Parser) parseInTail(left ast.Expression, not bool, pos ast.Pos) (ast.Expression, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if p.curIs(token.SELECT) || p.curIs(token.WITH) {
		sel, err := p.parseSelectOrSetOp()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.InExpr{Operand: left, Not: not, Subquery: &ast.Subquery{Select: sel, Base: astBase(pos)}, Base: astBase(pos)}, nil
	}
	var values []ast.Expression
	for !p.curIs(token.RPAREN) {
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.InExpr{Operand: left, Not: not, Values: values, Base: astBase(pos)}, nil
}

func (p *Parser) parseLikeTail(left ast.Expression, not bool, pos ast.Pos) (ast.Expression, error) {
	pattern, err := p.parseExpression(precCompare)
	if err != nil {
		return nil, err
	}
	expr := &ast.LikeExpr{Operand: left, Not: not, Pattern: pattern, Base: astBase(pos)}
	if strings.EqualFold(p.cur.Lexeme, "ESCAPE") && p.curIs(token.IDENT) {
		p.advance()
		esc, err := p.parseExpression(precCompare)
		if err != nil {
			return nil, err
		}
		expr.Escape = esc
	}
	return expr, nil
}

func (p *Parser) parseBetweenTail(left ast.Expression, not bool, pos ast.Pos) (ast.Expression, error) {
	low, err := p.parseExpression(precCompare)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AND); err != nil {
		return nil, err
	}
	high, err := p.parseExpression(precCompare)
	if err != nil {
		return nil, err
	}
	return &ast.BetweenExpr{Operand: left, Not: not, Low: low, High: high, Base: astBase(pos)}, nil
}
