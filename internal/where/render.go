package where

import (
	"fmt"
	"strings"
)

// SQL renders the tree as a SQL boolean expression over the kind's table.
// An empty tree renders as "".
func (t *Tree) SQL(ctx EvalContext) string {
	if t == nil || t.Root == nil {
		return ""
	}
	return t.Root.SQL(ctx)
}

// SQL renders the node as a SQL boolean expression. Datetimes render as
// Unix seconds and ~ renders as a REGEXP call.
func (n *Node) SQL(ctx EvalContext) string {
	switch n.Kind {
	case NodeLogical:
		return fmt.Sprintf("(%s %s %s)", n.Lhs.SQL(ctx), strings.ToUpper(n.Op.String()), n.Rhs.SQL(ctx))
	case NodeAttribute:
		cmp := "="
		if n.Op == OpHasNot {
			cmp = "<>"
		}
		return fmt.Sprintf("attributes & %d %s %d", n.Flag, cmp, n.Flag)
	case NodeComparison:
		op := n.Op.String()
		switch n.Op {
		case OpNotEquals:
			op = "<>"
		case OpLike:
			op = "REGEXP"
		}
		return fmt.Sprintf("%s %s %s", n.Left.SQL(ctx), op, n.Right.SQL(ctx))
	}
	return ""
}
