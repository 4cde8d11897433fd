// Package where compiles HDSL where clauses into typed predicate trees.
//
// A tree can be evaluated in memory against a record, which is how clauses
// are validated before a statement touches storage, and rendered to a SQL
// fragment for the data handler.
package where

import (
	"fmt"
	"regexp"

	"github.com/hashward/hdsl/internal/lexer"
)

// NodeKind discriminates the variants of Node.
type NodeKind int

const (
	NodeComparison NodeKind = iota
	NodeLogical
	NodeAttribute
)

// Op is a where-clause operator.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpGreater
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
	OpLike
	OpAnd
	OpOr
	OpHas
	OpHasNot
)

var opSymbols = map[Op]string{
	OpEquals:         "=",
	OpNotEquals:      "!=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpLike:           "~",
	OpAnd:            "and",
	OpOr:             "or",
	OpHas:            "+",
	OpHasNot:         "-",
}

func (o Op) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Ordering reports whether the operator needs an ordered operand type.
func (o Op) Ordering() bool {
	switch o {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}

func opFromToken(t lexer.Type) (Op, bool) {
	switch t {
	case lexer.TokenEquals:
		return OpEquals, true
	case lexer.TokenNotEquals:
		return OpNotEquals, true
	case lexer.TokenGreater:
		return OpGreater, true
	case lexer.TokenGreaterOrEqual:
		return OpGreaterOrEqual, true
	case lexer.TokenLess:
		return OpLess, true
	case lexer.TokenLessOrEqual:
		return OpLessOrEqual, true
	case lexer.TokenLike:
		return OpLike, true
	case lexer.TokenAnd:
		return OpAnd, true
	case lexer.TokenOr:
		return OpOr, true
	case lexer.TokenHas:
		return OpHas, true
	case lexer.TokenHasNot:
		return OpHasNot, true
	}
	return 0, false
}

// Node is one predicate in a where tree. Which fields are set depends on
// Kind:
//
//	NodeComparison: Op, Left, Right, and Pattern when Op is OpLike
//	NodeLogical:    Op, Lhs, Rhs
//	NodeAttribute:  Op, Flag, Attr
type Node struct {
	Kind NodeKind
	Op   Op
	Row  int
	Col  int

	Left    Value
	Right   Value
	Pattern *regexp.Regexp

	Lhs *Node
	Rhs *Node

	Flag int64
	Attr string
}

// And joins two trees with a logical and. Either side may be nil.
func And(a, b *Node) *Node {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Node{Kind: NodeLogical, Op: OpAnd, Row: a.Row, Col: a.Col, Lhs: a, Rhs: b}
}

func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeComparison:
		return fmt.Sprintf("%s %s %s", n.Left, n.Op, n.Right)
	case NodeLogical:
		return fmt.Sprintf("(%s %s %s)", n.Lhs, n.Op, n.Rhs)
	case NodeAttribute:
		return n.Op.String() + n.Attr
	}
	return "?"
}
