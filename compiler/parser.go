package compiler

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: LL(1) recursive descent
//
//   Program -> Expr END
//   Expr    -> Term (PLUS Term)*
//   Term    -> Pow (TIMES Pow)*
//   Pow     -> Fact (POW Pow)?
//   Fact    -> INT | PAREN_OPEN Expr PAREN_CLOSE
// ---------------------------------------------------------------------------

// ErrSyntax is the sentinel wrapped by every *SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports the first token the parser could not accept.
type SyntaxError struct {
	Pos      Position
	Found    Token
	Expected []TokenKind
}

func (e *SyntaxError) Error() string {
	found := "end of input"
	if e.Found.Kind != TokenEnd {
		found = fmt.Sprintf("%s %q", e.Found.Kind, e.Found.Text)
	}
	if len(e.Expected) == 0 {
		return fmt.Sprintf("syntax error at %s: unexpected %s", e.Pos, found)
	}
	names := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		names[i] = k.String()
	}
	return fmt.Sprintf("syntax error at %s: unexpected %s, expected %s",
		e.Pos, found, strings.Join(names, " or "))
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parser builds an AST from a token stream with one token of lookahead.
type Parser struct {
	next    func() (Token, bool)
	stop    func()
	current Token
}

// NewParser creates a parser reading tokens lazily from the given input.
func NewParser(input string) *Parser {
	return NewParserFromTokens(NewLexer(input).Tokens())
}

// NewParserFromTokens creates a parser over an arbitrary token sequence.
// The sequence must end with TokenEnd; if it runs dry first, the parser
// behaves as though END had been seen. The sequence is pulled from a
// coroutine that ParseProgram releases; call Close on a parser that is
// never run.
func NewParserFromTokens(tokens iter.Seq[Token]) *Parser {
	p := &Parser{}
	p.next, p.stop = iter.Pull(tokens)
	p.advance()
	return p
}

// Parse parses a complete program.
func Parse(input string) (*Node, error) {
	return NewParser(input).ParseProgram()
}

// advance moves the lookahead to the next token.
func (p *Parser) advance() {
	tok, ok := p.next()
	if !ok {
		tok = Token{Kind: TokenEnd, Pos: p.current.Pos}
	}
	p.current = tok
}

// Close stops the underlying token sequence. It is safe to call more than
// once and after ParseProgram.
func (p *Parser) Close() {
	p.stop()
}

// Current returns the lookahead token.
func (p *Parser) Current() Token {
	return p.current
}

// expect consumes the current token if it has the given kind.
func (p *Parser) expect(kind TokenKind) (Token, error) {
	if p.current.Kind != kind {
		return Token{}, p.errorf(kind)
	}
	tok := p.current
	p.advance()
	return tok, nil
}

func (p *Parser) errorf(expected ...TokenKind) error {
	return &SyntaxError{Pos: p.current.Pos, Found: p.current, Expected: expected}
}

// ParseProgram parses Program -> Expr END. On failure no tree is returned.
func (p *Parser) ParseProgram() (*Node, error) {
	defer p.Close()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return NewProgram(expr), nil
}

// parseExpr folds a chain of '+' into a left-leaning tree.
func (p *Parser) parseExpr() (*Node, error) {
	result, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.current.Kind == TokenPlus {
		op, _ := p.expect(TokenPlus)
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		result = NewAdd(op, result, right)
	}
	return result, nil
}

// parseTerm folds a chain of '*' into a left-leaning tree.
func (p *Parser) parseTerm() (*Node, error) {
	result, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for p.current.Kind == TokenTimes {
		op, _ := p.expect(TokenTimes)
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		result = NewMul(op, result, right)
	}
	return result, nil
}

// parsePow recurses on its right operand, so '^' groups to the right.
func (p *Parser) parsePow() (*Node, error) {
	base, err := p.parseFact()
	if err != nil {
		return nil, err
	}
	if p.current.Kind != TokenPow {
		return base, nil
	}
	op, _ := p.expect(TokenPow)
	exp, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	return NewPow(op, base, exp), nil
}

func (p *Parser) parseFact() (*Node, error) {
	switch p.current.Kind {
	case TokenInt:
		tok, _ := p.expect(TokenInt)
		return NewLiteral(tok), nil

	case TokenParenOpen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.errorf(TokenInt, TokenParenOpen)
	}
}
