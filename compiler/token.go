package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds for the expression lexer
// ---------------------------------------------------------------------------

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenPlus       TokenKind = iota // +
	TokenTimes                       // *
	TokenPow                         // ^
	TokenParenOpen                   // (
	TokenParenClose                  // )
	TokenInt                         // 42
	TokenEnd                         // end of input
	TokenIllegal                     // any unrecognized character
)

var tokenNames = map[TokenKind]string{
	TokenPlus:       "PLUS",
	TokenTimes:      "TIMES",
	TokenPow:        "POW",
	TokenParenOpen:  "PAREN_OPEN",
	TokenParenClose: "PAREN_CLOSE",
	TokenInt:        "INT",
	TokenEnd:        "END",
	TokenIllegal:    "ILLEGAL",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(k))
}

// Position is the start location of a token within the input line.
type Position struct {
	Offset int // byte offset
	Column int // 1-based rune column
}

func (p Position) String() string {
	return fmt.Sprintf("column %d", p.Column)
}

// Token is a classified lexical unit.
type Token struct {
	Kind TokenKind
	Text string // the exact matched text; empty for END
	Pos  Position
}

func (t Token) String() string {
	if t.Kind == TokenEnd {
		return "[END]"
	}
	return fmt.Sprintf("[%s, %q]", t.Kind, t.Text)
}

// operatorKinds maps single-character operators and delimiters to their kind.
var operatorKinds = map[rune]TokenKind{
	'+': TokenPlus,
	'*': TokenTimes,
	'^': TokenPow,
	'(': TokenParenOpen,
	')': TokenParenClose,
}
