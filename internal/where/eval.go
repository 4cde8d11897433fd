package where

import (
	"time"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/model"
)

// Eval evaluates the tree against a record.
func (t *Tree) Eval(rec model.Record, ctx EvalContext) (bool, error) {
	if t == nil || t.Root == nil {
		return true, nil
	}
	return t.Root.Eval(rec, ctx)
}

// Check dry-runs the tree against a synthetic record of its kind. Any type
// or column problem the compiler let through surfaces here, before a
// statement reaches storage.
func (t *Tree) Check(cat catalog.Catalog, ctx EvalContext) error {
	if t == nil || t.Root == nil {
		return nil
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return t.Root.validate(catalog.Synthetic(cat, t.Kind), ctx)
}

// validate evaluates every comparison in the subtree; unlike Eval it does
// not short-circuit logical nodes.
func (n *Node) validate(rec model.Record, ctx EvalContext) error {
	if n.Kind != NodeLogical {
		_, err := n.Eval(rec, ctx)
		return err
	}
	if err := n.Lhs.validate(rec, ctx); err != nil {
		return err
	}
	return n.Rhs.validate(rec, ctx)
}

// Eval evaluates the node against a record.
func (n *Node) Eval(rec model.Record, ctx EvalContext) (bool, error) {
	switch n.Kind {
	case NodeLogical:
		l, err := n.Lhs.Eval(rec, ctx)
		if err != nil {
			return false, err
		}
		if n.Op == OpAnd && !l {
			return false, nil
		}
		if n.Op == OpOr && l {
			return true, nil
		}
		return n.Rhs.Eval(rec, ctx)
	case NodeAttribute:
		attrs, ok := rec["attributes"].(int64)
		if !ok {
			return false, errorf(InvalidUseOfHasOrHasNot, n.Row, n.Col, "record has no attributes")
		}
		has := attrs&n.Flag == n.Flag
		if n.Op == OpHasNot {
			return !has, nil
		}
		return has, nil
	case NodeComparison:
		return n.compare(rec, ctx)
	}
	return false, errorf(UnknownOperatorType, n.Row, n.Col, "unknown node kind %d", int(n.Kind))
}

func (n *Node) compare(rec model.Record, ctx EvalContext) (bool, error) {
	l, err := n.Left.Resolve(rec, ctx)
	if err != nil {
		return false, err
	}
	r, err := n.Right.Resolve(rec, ctx)
	if err != nil {
		return false, err
	}

	if n.Op == OpLike {
		s, ok := l.(string)
		if !ok || n.Pattern == nil {
			return false, errorf(InvalidUseOfLike, n.Row, n.Col, "~ needs string operands")
		}
		return n.Pattern.MatchString(s), nil
	}

	var c int
	switch lv := l.(type) {
	case string:
		rv, ok := r.(string)
		if !ok {
			return false, n.mismatch(l, r)
		}
		if n.Op.Ordering() {
			return false, errorf(OperatorTypeMismatch, n.Row, n.Col, "%s cannot be applied to strings", n.Op)
		}
		if lv != rv {
			c = 1
		}
	case int64:
		rv, ok := r.(int64)
		if !ok {
			return false, n.mismatch(l, r)
		}
		c = cmp(lv, rv)
	case float64:
		rv, ok := r.(float64)
		if !ok {
			return false, n.mismatch(l, r)
		}
		c = cmp(lv, rv)
	case time.Time:
		rv, ok := r.(time.Time)
		if !ok {
			return false, n.mismatch(l, r)
		}
		// Stored datetimes have second precision.
		c = cmp(lv.Unix(), rv.Unix())
	default:
		return false, n.mismatch(l, r)
	}

	switch n.Op {
	case OpEquals:
		return c == 0, nil
	case OpNotEquals:
		return c != 0, nil
	case OpGreater:
		return c > 0, nil
	case OpGreaterOrEqual:
		return c >= 0, nil
	case OpLess:
		return c < 0, nil
	case OpLessOrEqual:
		return c <= 0, nil
	}
	return false, errorf(UnknownOperatorType, n.Row, n.Col, "unknown comparison operator %s", n.Op)
}

func (n *Node) mismatch(l, r any) error {
	return errorf(TypeMismatch, n.Row, n.Col, "cannot compare %T with %T", l, r)
}

func cmp[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
