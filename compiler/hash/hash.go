package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/arith/compiler"
)

// Sum computes the SHA-256 content hash of a parsed program.
//
// The hash covers the tree shape and normalized literal values only, so
// inputs differing in whitespace, redundant parentheses or leading zeros
// ("(007)" and "7") hash the same.
func Sum(root *compiler.Node) [32]byte {
	return sha256.Sum256(Serialize(root))
}

// Key returns the hex form of Sum, used as a cache key.
func Key(root *compiler.Node) string {
	h := Sum(root)
	return hex.EncodeToString(h[:])
}
