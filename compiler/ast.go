package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// AST: one node type tagged by kind, with owned, ordered children
// ---------------------------------------------------------------------------

// NodeKind tags an AST node.
type NodeKind int

const (
	KindProgram NodeKind = iota
	KindAdd
	KindMul
	KindPow
	KindLiteral
)

var kindNames = map[NodeKind]string{
	KindProgram: "Program",
	KindAdd:     "Add",
	KindMul:     "Mul",
	KindPow:     "Pow",
	KindLiteral: "Literal",
}

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Arity returns the number of children a node of this kind must have,
// or -1 for an unknown kind.
func (k NodeKind) Arity() int {
	switch k {
	case KindLiteral:
		return 0
	case KindProgram:
		return 1
	case KindAdd, KindMul, KindPow:
		return 2
	}
	return -1
}

// anchorKind is the token kind that anchors a node of kind k. Program has
// no dedicated token and accepts any anchor.
func (k NodeKind) anchorKind() (TokenKind, bool) {
	switch k {
	case KindAdd:
		return TokenPlus, true
	case KindMul:
		return TokenTimes, true
	case KindPow:
		return TokenPow, true
	case KindLiteral:
		return TokenInt, true
	}
	return 0, false
}

// Node is an immutable AST node. Children are owned by their parent and
// never shared between trees built by the parser.
type Node struct {
	Kind     NodeKind
	Anchor   Token
	children []*Node
}

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Left and Right return the operands of a binary node.
func (n *Node) Left() *Node  { return n.children[0] }
func (n *Node) Right() *Node { return n.children[1] }

// ErrInvalidTree is wrapped by every structural validation failure.
var ErrInvalidTree = errors.New("invalid tree")

// NewNode builds a node after checking arity and anchor kind. It is the
// entry point for trees that do not come from the parser.
func NewNode(kind NodeKind, anchor Token, children ...*Node) (*Node, error) {
	arity := kind.Arity()
	if arity < 0 {
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrInvalidTree, int(kind))
	}
	if len(children) != arity {
		return nil, fmt.Errorf("%w: %s needs %d children, got %d", ErrInvalidTree, kind, arity, len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: %s child %d is nil", ErrInvalidTree, kind, i)
		}
		if c.Kind == KindProgram {
			return nil, fmt.Errorf("%w: Program nested under %s", ErrInvalidTree, kind)
		}
	}
	if want, ok := kind.anchorKind(); ok && anchor.Kind != want {
		return nil, fmt.Errorf("%w: %s anchored by %s, want %s", ErrInvalidTree, kind, anchor.Kind, want)
	}
	if kind == KindLiteral && !isDecimal(anchor.Text) {
		return nil, fmt.Errorf("%w: literal text %q is not a decimal digit sequence", ErrInvalidTree, anchor.Text)
	}
	n := &Node{Kind: kind, Anchor: anchor}
	if arity > 0 {
		n.children = append(make([]*Node, 0, arity), children...)
	}
	return n, nil
}

func mustNode(kind NodeKind, anchor Token, children ...*Node) *Node {
	n, err := NewNode(kind, anchor, children...)
	if err != nil {
		panic(err)
	}
	return n
}

// NewProgram wraps the top-level expression.
func NewProgram(expr *Node) *Node {
	return mustNode(KindProgram, Token{Kind: TokenEnd}, expr)
}

// NewAdd builds an addition anchored at its '+' token.
func NewAdd(op Token, left, right *Node) *Node {
	return mustNode(KindAdd, op, left, right)
}

// NewMul builds a multiplication anchored at its '*' token.
func NewMul(op Token, left, right *Node) *Node {
	return mustNode(KindMul, op, left, right)
}

// NewPow builds an exponentiation anchored at its '^' token.
func NewPow(op Token, left, right *Node) *Node {
	return mustNode(KindPow, op, left, right)
}

// NewLiteral builds an integer literal from its INT token.
func NewLiteral(tok Token) *Node {
	return mustNode(KindLiteral, tok)
}

// Validate checks the whole-tree invariants: a Program root with a single
// expression child, and correct arity and anchors everywhere below it.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidTree)
	}
	if n.Kind != KindProgram {
		return fmt.Errorf("%w: root is %s, want Program", ErrInvalidTree, n.Kind)
	}
	return n.validate(0)
}

func (n *Node) validate(depth int) error {
	if depth > 0 && n.Kind == KindProgram {
		return fmt.Errorf("%w: Program below the root", ErrInvalidTree)
	}
	// Re-run the constructor checks against the stored state.
	if _, err := NewNode(n.Kind, n.Anchor, n.children...); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := c.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) String() string {
	if n.Kind == KindProgram {
		return n.Kind.String()
	}
	return fmt.Sprintf("%s %s", n.Kind, n.Anchor)
}

// StringTree renders the tree one node per line, children indented by two
// spaces under their parent.
func (n *Node) StringTree() string {
	var sb strings.Builder
	treeTraversal(n, "", &sb)
	return sb.String()
}

func treeTraversal(n *Node, indent string, sb *strings.Builder) {
	sb.WriteString(indent)
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for _, c := range n.children {
		treeTraversal(c, indent+"  ", sb)
	}
}

// Digits returns a literal's value as decimal digits without leading
// zeros, so "007" and "7" render alike. It panics on non-literal nodes.
func (n *Node) Digits() string {
	if n.Kind != KindLiteral {
		panic(fmt.Sprintf("Digits called on %s node", n.Kind))
	}
	return CanonicalDigits(n.Anchor.Text)
}

// CanonicalDigits strips leading zeros from a decimal digit sequence,
// keeping a single "0" for an all-zero literal.
func CanonicalDigits(text string) string {
	trimmed := strings.TrimLeft(text, "0")
	if trimmed == "" && text != "" {
		return "0"
	}
	return trimmed
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
