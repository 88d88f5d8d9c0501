package compiler

import "strings"

// SExpr renders the program in fully parenthesized prefix notation, for
// example "(+ 1 (* 2 3))".
func SExpr(root *Node) string {
	var sb strings.Builder
	writeSExpr(&sb, root)
	return sb.String()
}

var sexprHeads = map[NodeKind]string{
	KindAdd: "+",
	KindMul: "*",
	KindPow: "expt",
}

func writeSExpr(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case KindProgram:
		writeSExpr(sb, n.Child(0))
	case KindLiteral:
		sb.WriteString(n.Digits())
	case KindAdd, KindMul, KindPow:
		sb.WriteByte('(')
		sb.WriteString(sexprHeads[n.Kind])
		sb.WriteByte(' ')
		writeSExpr(sb, n.Left())
		sb.WriteByte(' ')
		writeSExpr(sb, n.Right())
		sb.WriteByte(')')
	default:
		panic(badKind(BackendSExpr, n))
	}
}
