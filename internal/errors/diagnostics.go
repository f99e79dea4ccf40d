package errors

import (
	"fmt"

	"mica/internal/ast"
)

// Kind discriminates diagnostics. Diagnostics are structured values;
// message text is derived, never stored.
type Kind int

const (
	// Lexical
	UnexpectedChar Kind = iota

	// Syntactic
	ExpectedSemicolon
	ExpectedEquals
	ExpectedOpeningParenthesis
	ExpectedClosingParenthesis
	ExpectedClosingSquareBracket
	ExpectedBlockOpeningBrace
	ExpectedBlockClosingBrace
	ExpectedPrimaryExpression
	ExpectedIdentifier
	ExpectedVariable
	ExpectedStructFieldName
	ExpectedStructFieldColon
	ExpectedStructLiteralBrace
	ExpectedLetVariableName
	ExpectedFunctionIdentifier
	InvalidNumericLiteral
	InvalidAssignmentTarget
	ExpectedEndOfExpression

	// Semantic
	UndefinedVariable
	UndefinedFunction
	WrongArgCount
	NotAStruct
	UndefinedField
	NotCallable
	NotIndexable
	TypeMismatch
)

var kindCodes = [...]string{
	UnexpectedChar:               "E0001",
	ExpectedSemicolon:            "E0100",
	ExpectedEquals:               "E0101",
	ExpectedOpeningParenthesis:   "E0102",
	ExpectedClosingParenthesis:   "E0103",
	ExpectedClosingSquareBracket: "E0104",
	ExpectedBlockOpeningBrace:    "E0105",
	ExpectedBlockClosingBrace:    "E0106",
	ExpectedPrimaryExpression:    "E0107",
	ExpectedIdentifier:           "E0108",
	ExpectedVariable:             "E0109",
	ExpectedStructFieldName:      "E0110",
	ExpectedStructFieldColon:     "E0111",
	ExpectedStructLiteralBrace:   "E0112",
	ExpectedLetVariableName:      "E0113",
	ExpectedFunctionIdentifier:   "E0114",
	InvalidNumericLiteral:        "E0115",
	InvalidAssignmentTarget:      "E0116",
	ExpectedEndOfExpression:      "E0117",
	UndefinedVariable:            "E0200",
	UndefinedFunction:            "E0201",
	WrongArgCount:                "E0202",
	NotAStruct:                   "E0203",
	UndefinedField:               "E0204",
	NotCallable:                  "E0205",
	NotIndexable:                 "E0206",
	TypeMismatch:                 "E0207",
}

// Code returns the stable diagnostic code for documentation and tests.
func (k Kind) Code() string {
	if int(k) < len(kindCodes) {
		return kindCodes[k]
	}
	return "E9999"
}

// Diagnostic is one parse or semantic error with enough structure for a
// formatter. The payload fields are populated per kind.
type Diagnostic struct {
	Kind     Kind
	Position ast.Position
	Length   int

	// Payload, per kind.
	Name     string // identifier, field, or function involved
	Found    string // lexeme actually seen, "" at end of input
	Context  string // free-form clause appended to the primary message
	Expected int    // WrongArgCount
	Got      int    // WrongArgCount
	Want     string // TypeMismatch / NotAStruct / NotCallable: shape names
	Have     string
}

func found(lexeme string) string {
	if lexeme == "" {
		return ", found end of input"
	}
	return fmt.Sprintf(", found '%s'", lexeme)
}

// clause glues an optional context fragment onto a message head.
func clause(head, context string) string {
	if context == "" {
		return head
	}
	return head + " " + context
}

// Message renders the primary diagnostic text for a kind and payload.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case UnexpectedChar:
		return fmt.Sprintf("unexpected character '%s'", d.Found)
	case ExpectedSemicolon:
		return "expected ';' after statement" + found(d.Found)
	case ExpectedEquals:
		return clause("expected '='", d.Context) + found(d.Found)
	case ExpectedOpeningParenthesis:
		return clause("expected '('", d.Context) + found(d.Found)
	case ExpectedClosingParenthesis:
		return clause("expected ')'", d.Context) + found(d.Found)
	case ExpectedClosingSquareBracket:
		return clause("expected ']'", d.Context) + found(d.Found)
	case ExpectedBlockOpeningBrace:
		return clause("expected '{' to open block", d.Context) + found(d.Found)
	case ExpectedBlockClosingBrace:
		return clause("expected '}' to close block", d.Context) + found(d.Found)
	case ExpectedPrimaryExpression:
		return "expected expression" + found(d.Found)
	case ExpectedIdentifier:
		return clause("expected identifier", d.Context) + found(d.Found)
	case ExpectedVariable:
		return clause("expected variable", d.Context) + found(d.Found)
	case ExpectedStructFieldName:
		return "expected field name in struct literal" + found(d.Found)
	case ExpectedStructFieldColon:
		return "expected ':' after struct field name" + found(d.Found)
	case ExpectedStructLiteralBrace:
		return "expected '" + d.Context + "' in struct literal" + found(d.Found)
	case ExpectedLetVariableName:
		return "expected variable name after 'let'" + found(d.Found)
	case ExpectedFunctionIdentifier:
		return "expected " + d.Context + found(d.Found)
	case InvalidNumericLiteral:
		return fmt.Sprintf("invalid numeric literal '%s'", d.Found)
	case InvalidAssignmentTarget:
		return "invalid assignment target; expected variable or index expression before '='"
	case ExpectedEndOfExpression:
		return "expected end of expression" + found(d.Found)
	case UndefinedVariable:
		return fmt.Sprintf("undefined variable '%s'", d.Name)
	case UndefinedFunction:
		return fmt.Sprintf("undefined function '%s'", d.Name)
	case WrongArgCount:
		return fmt.Sprintf("function '%s' expects %d argument(s), got %d",
			d.Name, d.Expected, d.Got)
	case NotAStruct:
		return fmt.Sprintf("cannot access field on value of shape %s", d.Have)
	case UndefinedField:
		return fmt.Sprintf("struct has no field '%s'", d.Name)
	case NotCallable:
		return fmt.Sprintf("'%s' is not callable: value has shape %s", d.Name, d.Have)
	case NotIndexable:
		return fmt.Sprintf("cannot index value of shape %s", d.Have)
	case TypeMismatch:
		return fmt.Sprintf("assignment changes shape of '%s' from %s to %s",
			d.Name, d.Want, d.Have)
	}
	return "unknown diagnostic"
}

// Error makes Diagnostic usable where a plain error is expected.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: error[%s]: %s",
		d.Position.Line, d.Position.Column, d.Kind.Code(), d.Message())
}
