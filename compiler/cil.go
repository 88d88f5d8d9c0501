package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// CIL emission: stack-machine assembly text for ilasm
//
// Checked arithmetic runs on int32. The only power routine available is the
// 64-bit Int64.Utils::Pow in the int64lib assembly, so both operands of '^'
// are widened with conv.i8 and the result narrowed back with conv.i4.
// ---------------------------------------------------------------------------

const cilPrologue = `.assembly 'output' { }

.assembly extern int64lib { }

.class public 'Test' extends ['mscorlib']'System'.'Object' {
  .method public static void 'whatever'() {
  .entrypoint
`

const cilEpilogue = `  }
}
`

// Instruction text, indented as it appears in the method body.
const (
	insnPrefix   = "    "
	insnLoad     = "ldc.i4"
	insnAdd      = "add.ovf"
	insnMul      = "mul.ovf"
	insnWiden    = "conv.i8"
	insnNarrow   = "conv.i4"
	insnCallPow  = "call int64 class ['int64lib']'Int64'.'Utils'::'Pow'(int64, int64)"
	insnPrint    = "call void class ['mscorlib']'System'.'Console'::'WriteLine'(int32)"
	insnRet      = "ret"
	insnMaxStack = ".maxstack"
)

// defaultMaxStack is the evaluation stack size ilasm assumes when a method
// has no .maxstack directive.
const defaultMaxStack = 8

// EmitCIL produces a complete ilasm listing that prints the value of the
// expression. Every subexpression's code leaves exactly one more value on
// the evaluation stack than it found.
func EmitCIL(root *Node) string {
	e := &cilEmitter{}
	e.emitNode(root)
	return e.sb.String()
}

type cilEmitter struct {
	sb strings.Builder
}

func (e *cilEmitter) emit(insn string, operands ...string) {
	e.sb.WriteString(insnPrefix)
	e.sb.WriteString(insn)
	for _, op := range operands {
		e.sb.WriteByte(' ')
		e.sb.WriteString(op)
	}
	e.sb.WriteByte('\n')
}

func (e *cilEmitter) emitNode(n *Node) {
	switch n.Kind {
	case KindProgram:
		e.sb.WriteString(cilPrologue)
		if depth := StackDepth(n.Child(0)); depth > defaultMaxStack {
			e.emit(insnMaxStack, fmt.Sprint(depth))
		}
		e.emitNode(n.Child(0))
		e.emit(insnPrint)
		e.emit(insnRet)
		e.sb.WriteString(cilEpilogue)

	case KindLiteral:
		e.emit(insnLoad, n.Digits())

	case KindAdd:
		e.emitNode(n.Left())
		e.emitNode(n.Right())
		e.emit(insnAdd)

	case KindMul:
		e.emitNode(n.Left())
		e.emitNode(n.Right())
		e.emit(insnMul)

	case KindPow:
		e.emitNode(n.Left())
		e.emit(insnWiden)
		e.emitNode(n.Right())
		e.emit(insnWiden)
		e.emit(insnCallPow)
		e.emit(insnNarrow)

	default:
		panic(badKind(BackendCIL, n))
	}
}

// StackDepth returns the maximum evaluation stack depth reached while
// running the code emitted for n. The left operand's value sits on the
// stack while the right operand is computed.
func StackDepth(n *Node) int {
	switch n.Kind {
	case KindProgram:
		return StackDepth(n.Child(0))
	case KindLiteral:
		return 1
	case KindAdd, KindMul, KindPow:
		return max(StackDepth(n.Left()), 1+StackDepth(n.Right()))
	}
	panic(badKind(BackendCIL, n))
}

// StackError describes an instruction that breaks stack balance.
type StackError struct {
	Line  int // 1-based line in the listing
	Insn  string
	Depth int
	Msg   string
}

func (e *StackError) Error() string {
	return fmt.Sprintf("cil line %d (%s): %s at depth %d", e.Line, e.Insn, e.Msg, e.Depth)
}

// stackEffects maps each body instruction to the values it pops and pushes.
var stackEffects = map[string][2]int{
	insnLoad:    {0, 1},
	insnAdd:     {2, 1},
	insnMul:     {2, 1},
	insnWiden:   {1, 1},
	insnNarrow:  {1, 1},
	insnCallPow: {2, 1},
	insnPrint:   {1, 0},
	insnRet:     {0, 0},
}

// VerifyCIL simulates the method body of a listing produced by EmitCIL
// against an abstract stack-depth counter. The depth must never go
// negative, must be exactly 1 when the print call is reached, and 0 at ret.
// It returns the maximum depth observed.
func VerifyCIL(listing string) (int, error) {
	lines := strings.Split(listing, "\n")
	inBody := false
	depth, maxDepth := 0, 0
	printed, returned := false, false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if !inBody {
			inBody = line == ".entrypoint"
			continue
		}
		if line == "" || strings.HasPrefix(line, insnMaxStack) {
			continue
		}
		if line == "}" {
			break
		}
		if returned {
			return maxDepth, &StackError{Line: i + 1, Insn: line, Depth: depth, Msg: "instruction after ret"}
		}

		insn := line
		if strings.HasPrefix(line, insnLoad+" ") {
			insn = insnLoad
		}
		effect, ok := stackEffects[insn]
		if !ok {
			return maxDepth, &StackError{Line: i + 1, Insn: line, Depth: depth, Msg: "unknown instruction"}
		}

		switch insn {
		case insnPrint:
			if depth != 1 {
				return maxDepth, &StackError{Line: i + 1, Insn: insn, Depth: depth, Msg: "print needs exactly one value"}
			}
			printed = true
		case insnRet:
			if depth != 0 {
				return maxDepth, &StackError{Line: i + 1, Insn: insn, Depth: depth, Msg: "stack not empty at ret"}
			}
			returned = true
		}

		if depth < effect[0] {
			return maxDepth, &StackError{Line: i + 1, Insn: insn, Depth: depth, Msg: "stack underflow"}
		}
		depth += effect[1] - effect[0]
		maxDepth = max(maxDepth, depth)
	}

	if !inBody {
		return 0, fmt.Errorf("cil: no .entrypoint in listing")
	}
	if !printed || !returned {
		return maxDepth, fmt.Errorf("cil: method body missing print or ret")
	}
	return maxDepth, nil
}
