package parser

import (
	"strconv"

	"mica/internal/ast"
	"mica/internal/errors"
)

var binaryPrecedence = map[TokenType]int{
	OR:            1,
	AND:           2,
	EQUAL_EQUAL:   3,
	BANG_EQUAL:    3,
	LESS:          4,
	LESS_EQUAL:    4,
	GREATER:       4,
	GREATER_EQUAL: 4,
	PLUS:          5,
	MINUS:         5,
	STAR:          6,
	SLASH:         6,
	PERCENT:       6,
}

var binaryOps = map[TokenType]ast.BinaryOp{
	OR:            ast.LogicalOr,
	AND:           ast.LogicalAnd,
	EQUAL_EQUAL:   ast.Equal,
	BANG_EQUAL:    ast.NotEqual,
	LESS:          ast.LessThan,
	LESS_EQUAL:    ast.LessThanOrEqual,
	GREATER:       ast.GreaterThan,
	GREATER_EQUAL: ast.GreaterThanOrEqual,
	PLUS:          ast.Add,
	MINUS:         ast.Subtract,
	STAR:          ast.Multiply,
	SLASH:         ast.Divide,
	PERCENT:       ast.Modulo,
}

// parseExpr is the assignment level: '=' is right-associative and only
// valid after a variable or index expression.
func (p *Parser) parseExpr() ast.Node {
	left := p.parseBinary(0)

	if !p.check(EQUAL) {
		return left
	}
	equalsTok := p.advance()
	value := p.parseExpr()

	switch target := left.(type) {
	case *ast.IdentExpr:
		return &ast.AssignExpr{Pos: target.Pos, Name: target.Name, Value: value}
	case *ast.IndexExpr:
		return &ast.IndexAssignExpr{
			Pos:    target.Pos,
			Target: target.Target,
			Index:  target.Index,
			Value:  value,
		}
	}

	p.report(errors.InvalidAssignmentTarget, equalsTok, "")
	return left
}

// parseBinary climbs operator precedence. Operands are prefix
// expressions, which themselves end in a postfix chain.
func (p *Parser) parseBinary(minPrec int) ast.Node {
	left := p.parsePrefix()

	for {
		prec, ok := binaryPrecedence[p.peek().Type]
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryExpr{
			Pos:   left.NodePos(),
			Op:    binaryOps[opTok.Type],
			Left:  left,
			Right: right,
		}
	}
}

func (p *Parser) parsePrefix() ast.Node {
	var op ast.UnaryOp
	switch p.peek().Type {
	case MINUS:
		op = ast.Negate
	case PLUS:
		op = ast.UnaryPlus
	case BANG:
		op = ast.LogicalNot
	case AMPERSAND:
		op = ast.AddressOf
	case STAR:
		op = ast.Dereference
	default:
		return p.parsePostfix()
	}
	opTok := p.advance()
	operand := p.parsePrefix()
	return &ast.UnaryExpr{Pos: p.makePos(opTok), Op: op, Operand: operand}
}

func (p *Parser) parsePostfix() ast.Node {
	expr := p.parsePrimary()

	for {
		switch p.peek().Type {
		case LEFT_PAREN:
			ident, ok := expr.(*ast.IdentExpr)
			if !ok {
				p.report(errors.ExpectedVariable, p.peek(), "as function call target")
				return expr
			}
			p.advance()
			var args []ast.Node
			if !p.check(RIGHT_PAREN) {
				for {
					args = append(args, p.parseExpr())
					if !p.match(COMMA) {
						break
					}
				}
			}
			if !p.match(RIGHT_PAREN) {
				p.report(errors.ExpectedClosingParenthesis, p.peek(),
					"to close function call arguments")
			}
			expr = &ast.CallExpr{Pos: ident.Pos, Callee: ident.Name, Args: args}

		case LEFT_BRACKET:
			p.advance()
			index := p.parseExpr()
			if !p.match(RIGHT_BRACKET) {
				p.report(errors.ExpectedClosingSquareBracket, p.peek(),
					"to close index expression")
			}
			expr = &ast.IndexExpr{Pos: expr.NodePos(), Target: expr, Index: index}

		case DOT:
			p.advance()
			if !p.check(IDENTIFIER) {
				p.report(errors.ExpectedIdentifier, p.peek(), "after '.' in field access")
				return expr
			}
			fieldTok := p.advance()
			expr = &ast.FieldAccessExpr{
				Pos:    expr.NodePos(),
				Target: expr,
				Field:  fieldTok.Lexeme,
			}

		case INCREMENT:
			ident, ok := expr.(*ast.IdentExpr)
			if !ok {
				p.report(errors.ExpectedVariable, p.peek(), "before postfix '++'")
				p.advance()
				continue
			}
			p.advance()
			expr = &ast.IncrementExpr{Pos: ident.Pos, Target: ident}

		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Node {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		value, err := strconv.ParseUint(tok.Lexeme, 10, 64)
		if err != nil {
			p.report(errors.InvalidNumericLiteral, tok, "")
			return &ast.LiteralExpr{Pos: p.makePos(tok)}
		}
		return &ast.LiteralExpr{Pos: p.makePos(tok), Value: value}

	case IDENTIFIER:
		p.advance()
		return &ast.IdentExpr{Pos: p.makePos(tok), Name: tok.Lexeme}

	case STRUCT:
		return p.parseStructLiteral()

	case LEFT_PAREN:
		p.advance()
		expr := p.parseExpr()
		if !p.match(RIGHT_PAREN) {
			p.report(errors.ExpectedClosingParenthesis, p.peek(),
				"to close grouped expression")
		}
		return expr

	case LEFT_BRACKET:
		return p.parseArrayLiteral()
	}

	p.report(errors.ExpectedPrimaryExpression, tok, "")
	if tok.Type != EOF {
		p.advance()
	}
	return &ast.LiteralExpr{Pos: p.makePos(tok)}
}

func (p *Parser) parseArrayLiteral() ast.Node {
	openTok := p.advance()
	var elems []ast.Node
	if !p.check(RIGHT_BRACKET) {
		for {
			elems = append(elems, p.parseExpr())
			if !p.match(COMMA) {
				break
			}
		}
	}
	if !p.match(RIGHT_BRACKET) {
		p.report(errors.ExpectedClosingSquareBracket, p.peek(), "to close array literal")
	}
	return &ast.ArrayLiteralExpr{Pos: p.makePos(openTok), Elems: elems}
}

func (p *Parser) parseStructLiteral() ast.Node {
	structTok := p.advance()
	if !p.check(LEFT_BRACE) {
		p.reportCtx(errors.ExpectedStructLiteralBrace, p.peek(), "{")
		return &ast.StructLiteralExpr{Pos: p.makePos(structTok)}
	}
	p.advance()

	var fields []ast.StructField
	if !p.check(RIGHT_BRACE) {
		for {
			if !p.check(IDENTIFIER) {
				p.report(errors.ExpectedStructFieldName, p.peek(), "")
				p.synchronizeUntil(COMMA, RIGHT_BRACE, SEMICOLON)
				if p.match(COMMA) {
					continue
				}
				break
			}
			nameTok := p.advance()
			if !p.match(COLON) {
				p.report(errors.ExpectedStructFieldColon, p.peek(), "")
				p.synchronizeUntil(COMMA, RIGHT_BRACE, SEMICOLON)
				if p.match(COMMA) {
					continue
				}
				break
			}
			fields = append(fields, ast.StructField{
				Name:  nameTok.Lexeme,
				Value: p.parseExpr(),
			})
			if !p.match(COMMA) {
				break
			}
		}
	}

	if !p.match(RIGHT_BRACE) {
		p.reportCtx(errors.ExpectedStructLiteralBrace, p.peek(), "}")
	}
	return &ast.StructLiteralExpr{Pos: p.makePos(structTok), Fields: fields}
}
