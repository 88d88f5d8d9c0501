package compiler

import "strings"

// ---------------------------------------------------------------------------
// C translation
// ---------------------------------------------------------------------------

const cPrologue = `#include <stdio.h>
#include <math.h>

int main(void) {
    printf("%d\n", `

const cEpilogue = `);
    return 0;
}
`

// TranslateC produces a standalone C program that prints the value of the
// expression followed by a newline. '^' becomes pow() truncated to int, so
// the program needs -lm on most toolchains.
func TranslateC(root *Node) string {
	var sb strings.Builder
	writeC(&sb, root)
	return sb.String()
}

func writeC(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case KindProgram:
		sb.WriteString(cPrologue)
		writeC(sb, n.Child(0))
		sb.WriteString(cEpilogue)
	case KindLiteral:
		sb.WriteString(n.Digits())
	case KindAdd:
		writeCInfix(sb, n, '+')
	case KindMul:
		writeCInfix(sb, n, '*')
	case KindPow:
		sb.WriteString("(int) pow(")
		writeC(sb, n.Left())
		sb.WriteByte(',')
		writeC(sb, n.Right())
		sb.WriteByte(')')
	default:
		panic(badKind(BackendC, n))
	}
}

func writeCInfix(sb *strings.Builder, n *Node, op byte) {
	sb.WriteByte('(')
	writeC(sb, n.Left())
	sb.WriteByte(op)
	writeC(sb, n.Right())
	sb.WriteByte(')')
}
