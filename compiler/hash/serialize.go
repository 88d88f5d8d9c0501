package hash

import (
	"encoding/binary"
	"fmt"

	"github.com/chazu/arith/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a program tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Each node: its tag byte, then its children in order (flat, prefix order)
//   - Literals: uint32 big-endian length + normalized decimal digits
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of a tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(root *compiler.Node) []byte {
	s := &serializer{buf: make([]byte, 0, 64)}
	s.writeByte(HashVersion)
	s.serializeNode(root)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

var binaryTags = map[compiler.NodeKind]byte{
	compiler.KindAdd: TagAdd,
	compiler.KindMul: TagMul,
	compiler.KindPow: TagPow,
}

func (s *serializer) serializeNode(n *compiler.Node) {
	switch n.Kind {
	case compiler.KindProgram:
		s.writeByte(TagProgram)
		s.serializeNode(n.Child(0))

	case compiler.KindLiteral:
		s.writeByte(TagLiteral)
		s.writeString(n.Digits())

	case compiler.KindAdd, compiler.KindMul, compiler.KindPow:
		s.writeByte(binaryTags[n.Kind])
		s.serializeNode(n.Left())
		s.serializeNode(n.Right())

	default:
		panic(fmt.Sprintf("hash: unexpected node kind %s", n.Kind))
	}
}
