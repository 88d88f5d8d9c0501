package compiler

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for single-line arithmetic expressions
// ---------------------------------------------------------------------------

// Lexer scans an input line into tokens. It never fails: characters it does
// not recognize become TokenIllegal and scanning continues.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	col     int  // column of ch (1-based)
	done    bool // END already produced
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	l.col++
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Column: l.col}
}

// NextToken returns the next token. Once the input is exhausted it returns
// TokenEnd, and keeps returning it on every later call.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.position()
	if l.atEnd() {
		l.done = true
		return Token{Kind: TokenEnd, Pos: pos}
	}

	if kind, ok := operatorKinds[l.ch]; ok {
		text := string(l.ch)
		l.readChar()
		return Token{Kind: kind, Text: text, Pos: pos}
	}

	if isDigit(l.ch) {
		return l.readInt(pos)
	}

	// Exactly one character; decoding errors still consume their byte.
	start := l.pos
	l.readChar()
	return Token{Kind: TokenIllegal, Text: l.input[start:l.pos], Pos: pos}
}

// Tokens returns a lazy, single-use sequence of tokens. The sequence yields
// TokenEnd exactly once, as its final element.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		if l.done {
			return
		}
		for {
			tok := l.NextToken()
			if !yield(tok) || tok.Kind == TokenEnd {
				return
			}
		}
	}
}

// Tokenize scans the whole input eagerly.
func Tokenize(input string) []Token {
	var toks []Token
	for tok := range NewLexer(input).Tokens() {
		toks = append(toks, tok)
	}
	return toks
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readInt consumes a maximal run of decimal digits.
func (l *Lexer) readInt(pos Position) Token {
	start := l.pos
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	return Token{Kind: TokenInt, Text: l.input[start:l.pos], Pos: pos}
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
