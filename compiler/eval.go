package compiler

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Evaluator
//
// Values are 32-bit signed integers, the same width the C and CIL targets
// print. Overflow is an error rather than a silent wrap, and '^' is exact
// integer exponentiation instead of a truncated floating-point power.
// ---------------------------------------------------------------------------

var (
	// ErrOverflow is wrapped when a literal or intermediate result does not
	// fit in 32 bits.
	ErrOverflow = errors.New("integer overflow")

	// ErrNegativeExponent is wrapped when '^' sees a negative exponent.
	ErrNegativeExponent = errors.New("negative exponent")
)

// EvalError locates an evaluation failure at the node's anchor token.
type EvalError struct {
	Op  NodeKind
	Pos Position
	Err error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval %s at %s: %v", e.Op, e.Pos, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Evaluate computes the value of the program.
func Evaluate(root *Node) (int32, error) {
	return evalNode(root)
}

func evalNode(n *Node) (int32, error) {
	switch n.Kind {
	case KindProgram:
		return evalNode(n.Child(0))

	case KindLiteral:
		return literalValue(n)

	case KindAdd, KindMul, KindPow:
		left, err := evalNode(n.Left())
		if err != nil {
			return 0, err
		}
		right, err := evalNode(n.Right())
		if err != nil {
			return 0, err
		}
		v, err := applyBinary(n.Kind, int64(left), int64(right))
		if err != nil {
			return 0, &EvalError{Op: n.Kind, Pos: n.Anchor.Pos, Err: err}
		}
		return v, nil
	}
	panic(badKind(BackendEval, n))
}

func literalValue(n *Node) (int32, error) {
	v, err := strconv.ParseInt(n.Digits(), 10, 32)
	if err != nil {
		return 0, &EvalError{Op: n.Kind, Pos: n.Anchor.Pos, Err: ErrOverflow}
	}
	return int32(v), nil
}

// CheckLiterals reports the first literal that does not fit in 32 bits.
// The C and CIL targets cannot represent such a literal as an int32
// constant, so their backends refuse the program.
func CheckLiterals(n *Node) error {
	if n.Kind == KindLiteral {
		_, err := literalValue(n)
		return err
	}
	for _, c := range n.children {
		if err := CheckLiterals(c); err != nil {
			return err
		}
	}
	return nil
}

func applyBinary(kind NodeKind, l, r int64) (int32, error) {
	var v int64
	switch kind {
	case KindAdd:
		v = l + r
	case KindMul:
		v = l * r
	case KindPow:
		return ipow(l, r)
	}
	return narrow(v)
}

// ipow raises base to exp by repeated squaring, failing as soon as a
// partial product leaves the int32 range.
func ipow(base, exp int64) (int32, error) {
	if exp < 0 {
		return 0, ErrNegativeExponent
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
			if _, err := narrow(result); err != nil {
				return 0, err
			}
		}
		exp >>= 1
		if exp > 0 {
			// A set bit remains, so base will be multiplied in again.
			base *= base
			if base > math.MaxInt32 || base < math.MinInt32 {
				return 0, ErrOverflow
			}
		}
	}
	return narrow(result)
}

func narrow(v int64) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, ErrOverflow
	}
	return int32(v), nil
}
