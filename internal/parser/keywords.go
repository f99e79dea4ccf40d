package parser

var keywords = map[string]TokenType{
	"let":    LET,
	"while":  WHILE,
	"if":     IF,
	"else":   ELSE,
	"return": RETURN,
	"fn":     FN,
	"struct": STRUCT,
}
