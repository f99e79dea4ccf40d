package parser

import (
	"mica/internal/ast"
	"mica/internal/errors"
)

// Parser builds an AST from a token stream. It never stops on the first
// error: bad constructs become Literal(0) placeholders and parsing
// resynchronizes at the next ';', '}' or matching delimiter, so every
// input yields some AST alongside the full diagnostic list.
type Parser struct {
	tokens  []Token
	current int
	errors  []errors.Diagnostic
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Errors returns the syntactic diagnostics collected so far.
func (p *Parser) Errors() []errors.Diagnostic {
	return p.errors
}

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() *ast.Block {
	program := &ast.Block{Pos: p.makePos(p.peek())}
	for !p.isAtEnd() {
		program.Stmts = append(program.Stmts, p.parseStatement())
	}
	return program
}

// ParseExpression parses one expression and requires it to consume the
// whole input.
func (p *Parser) ParseExpression() ast.Node {
	expr := p.parseExpr()
	if !p.isAtEnd() {
		p.report(errors.ExpectedEndOfExpression, p.peek(), "")
	}
	return expr
}

func (p *Parser) parseStatement() ast.Node {
	switch p.peek().Type {
	case LET:
		return p.parseLet()
	case WHILE:
		return p.parseWhile()
	case IF:
		return p.parseIf()
	case RETURN:
		return p.parseReturn()
	case FN:
		return p.parseFunction()
	case LEFT_BRACE:
		return p.parseBlock("")
	default:
		expr := p.parseExpr()
		p.consumeStatementTerminator()
		return expr
	}
}

func (p *Parser) parseLet() ast.Node {
	letTok := p.advance()
	if !p.check(IDENTIFIER) {
		p.report(errors.ExpectedLetVariableName, p.peek(), "")
		p.synchronizeStatement()
		return &ast.LiteralExpr{Pos: p.makePos(letTok)}
	}
	nameTok := p.advance()

	if !p.match(EQUAL) {
		p.report(errors.ExpectedEquals, p.peek(), "after variable name in 'let'")
		p.synchronizeStatement()
		return &ast.LiteralExpr{Pos: p.makePos(letTok)}
	}

	init := p.parseExpr()
	p.consumeStatementTerminator()
	return &ast.LetStmt{Pos: p.makePos(letTok), Name: nameTok.Lexeme, Init: init}
}

func (p *Parser) parseWhile() ast.Node {
	whileTok := p.advance()
	if !p.match(LEFT_PAREN) {
		p.report(errors.ExpectedOpeningParenthesis, p.peek(), "after 'while'")
	}
	cond := p.parseExpr()
	if !p.match(RIGHT_PAREN) {
		p.report(errors.ExpectedClosingParenthesis, p.peek(), "to close while condition")
	}
	body := p.parseBlock("after while condition")
	return &ast.WhileStmt{Pos: p.makePos(whileTok), Cond: cond, Body: body}
}

func (p *Parser) parseIf() ast.Node {
	ifTok := p.advance()
	if !p.match(LEFT_PAREN) {
		p.report(errors.ExpectedOpeningParenthesis, p.peek(), "after 'if'")
	}
	cond := p.parseExpr()
	if !p.match(RIGHT_PAREN) {
		p.report(errors.ExpectedClosingParenthesis, p.peek(), "to close if condition")
	}

	then := p.parseBlock("after if condition")
	elseBlock := &ast.Block{Pos: then.Pos}
	if p.match(ELSE) {
		elseBlock = p.parseBlock("after 'else'")
	}
	return &ast.IfStmt{Pos: p.makePos(ifTok), Cond: cond, Then: then, Else: elseBlock}
}

func (p *Parser) parseReturn() ast.Node {
	returnTok := p.advance()
	value := p.parseExpr()
	p.consumeStatementTerminator()
	return &ast.ReturnStmt{Pos: p.makePos(returnTok), Value: value}
}

func (p *Parser) parseFunction() ast.Node {
	fnTok := p.advance()

	name := ""
	if p.check(IDENTIFIER) {
		name = p.advance().Lexeme
	} else {
		p.report(errors.ExpectedFunctionIdentifier, p.peek(), "function name after 'fn'")
	}

	if !p.match(LEFT_PAREN) {
		p.report(errors.ExpectedOpeningParenthesis, p.peek(), "after function name")
	}

	var params []string
	if !p.check(RIGHT_PAREN) {
		for {
			if !p.check(IDENTIFIER) {
				p.report(errors.ExpectedFunctionIdentifier, p.peek(),
					"parameter name in function declaration")
				p.synchronizeUntil(COMMA, RIGHT_PAREN)
				if p.match(COMMA) {
					continue
				}
				break
			}
			params = append(params, p.advance().Lexeme)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if !p.match(RIGHT_PAREN) {
		p.report(errors.ExpectedClosingParenthesis, p.peek(),
			"to close function parameter list")
	}

	body := p.parseBlock("after function declaration")
	return &ast.FunctionDecl{Pos: p.makePos(fnTok), Name: name, Params: params, Body: body}
}

func (p *Parser) parseBlock(context string) *ast.Block {
	if !p.check(LEFT_BRACE) {
		p.report(errors.ExpectedBlockOpeningBrace, p.peek(), context)
		return &ast.Block{Pos: p.makePos(p.peek())}
	}
	braceTok := p.advance()

	block := &ast.Block{Pos: p.makePos(braceTok)}
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		block.Stmts = append(block.Stmts, p.parseStatement())
	}

	if !p.match(RIGHT_BRACE) {
		p.report(errors.ExpectedBlockClosingBrace, p.peek(), context)
	}
	return block
}

// consumeStatementTerminator expects ';'. On anything else it reports and
// resynchronizes so subsequent statements can still be parsed.
func (p *Parser) consumeStatementTerminator() {
	if p.match(SEMICOLON) {
		return
	}
	p.report(errors.ExpectedSemicolon, p.peek(), "")
	p.synchronizeStatement()
}

// synchronizeStatement skips tokens until just past the next ';' or up to
// a '}' / end of input.
func (p *Parser) synchronizeStatement() {
	for !p.isAtEnd() && !p.check(RIGHT_BRACE) && !p.check(SEMICOLON) {
		p.advance()
	}
	p.match(SEMICOLON)
}

func (p *Parser) synchronizeUntil(stop ...TokenType) {
	for !p.isAtEnd() {
		for _, tt := range stop {
			if p.check(tt) {
				return
			}
		}
		p.advance()
	}
}
