// Package wire encodes parsed programs as canonical CBOR so trees can be
// cached and shipped between processes without re-parsing the source.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/arith/compiler"
	"github.com/chazu/arith/compiler/hash"
)

// FormatVersion identifies the layout of Tree.
const FormatVersion uint8 = 1

// Tree is the wire form of a program: its nodes in prefix order plus the
// content hash of the tree they describe. Nesting is implied by each
// node's arity, which keeps the encoding flat for deep expressions.
type Tree struct {
	Version uint8      `cbor:"1,keyasint"`
	Hash    [32]byte   `cbor:"2,keyasint"`
	Nodes   []WireNode `cbor:"3,keyasint"`
}

// WireNode is one node with its anchor token.
type WireNode struct {
	Kind   uint8  `cbor:"1,keyasint"`
	Token  uint8  `cbor:"2,keyasint"`
	Text   string `cbor:"3,keyasint,omitempty"`
	Offset int    `cbor:"4,keyasint,omitempty"`
	Column int    `cbor:"5,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalTree serializes a program to CBOR bytes.
func MarshalTree(root *compiler.Node) ([]byte, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("wire: marshal tree: %w", err)
	}
	t := &Tree{Version: FormatVersion, Hash: hash.Sum(root)}
	flatten(root, &t.Nodes)
	return cborEncMode.Marshal(t)
}

func flatten(n *compiler.Node, out *[]WireNode) {
	*out = append(*out, WireNode{
		Kind:   uint8(n.Kind),
		Token:  uint8(n.Anchor.Kind),
		Text:   n.Anchor.Text,
		Offset: n.Anchor.Pos.Offset,
		Column: n.Anchor.Pos.Column,
	})
	for i := 0; i < n.Len(); i++ {
		flatten(n.Child(i), out)
	}
}

// UnmarshalTree deserializes a program from CBOR bytes. The tree is rebuilt
// through compiler.NewNode, so structurally invalid input is rejected, and
// the recomputed content hash must match the recorded one.
func UnmarshalTree(data []byte) (*compiler.Node, error) {
	var t Tree
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("wire: unmarshal tree: %w", err)
	}
	if t.Version != FormatVersion {
		return nil, fmt.Errorf("wire: unsupported format version %d", t.Version)
	}

	b := &builder{nodes: t.Nodes}
	root, err := b.build()
	if err != nil {
		return nil, fmt.Errorf("wire: unmarshal tree: %w", err)
	}
	if b.next != len(b.nodes) {
		return nil, fmt.Errorf("wire: unmarshal tree: %d trailing nodes", len(b.nodes)-b.next)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("wire: unmarshal tree: %w", err)
	}
	if got := hash.Sum(root); got != t.Hash {
		return nil, fmt.Errorf("wire: hash mismatch: declared %x, computed %x", t.Hash, got)
	}
	return root, nil
}

type builder struct {
	nodes []WireNode
	next  int
}

// build consumes one node and, recursively, the children its arity calls for.
func (b *builder) build() (*compiler.Node, error) {
	if b.next >= len(b.nodes) {
		return nil, fmt.Errorf("truncated node list at %d", b.next)
	}
	wn := b.nodes[b.next]
	b.next++

	kind := compiler.NodeKind(wn.Kind)
	arity := kind.Arity()
	if arity < 0 {
		return nil, fmt.Errorf("%w: unknown node kind %d", compiler.ErrInvalidTree, wn.Kind)
	}
	children := make([]*compiler.Node, 0, arity)
	for i := 0; i < arity; i++ {
		c, err := b.build()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	anchor := compiler.Token{
		Kind: compiler.TokenKind(wn.Token),
		Text: wn.Text,
		Pos:  compiler.Position{Offset: wn.Offset, Column: wn.Column},
	}
	return compiler.NewNode(kind, anchor, children...)
}
