package expr

import (
	"strconv"
	"strings"
)

// String renders the tree as an S-expression, e.g. (add (square x) 1).
// Shared subtrees are printed at every use.
func (t Tree) String() string {
	if t.root == nil {
		return "<invalid>"
	}
	var sb strings.Builder
	writeNode(&sb, t.root)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.op {
	case OpConst:
		sb.WriteString(strconv.FormatFloat(n.value, 'g', -1, 64))
		return
	case OpVarX, OpVarY, OpVarZ:
		sb.WriteString(n.op.String())
		return
	case OpVarFree:
		sb.WriteString(n.arena.VarName(n.v))
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.op.String())
	if n.op == OpRemapAffine {
		sb.WriteString(" [")
		for i, v := range n.affine {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteByte(']')
	}
	for _, c := range n.Children() {
		sb.WriteByte(' ')
		writeNode(sb, c)
	}
	sb.WriteByte(')')
}
