package where

import (
	"regexp"
	"time"

	"github.com/hashward/hdsl/internal/catalog"
	"github.com/hashward/hdsl/internal/lexer"
	"github.com/hashward/hdsl/internal/model"
)

// Tree is a compiled where clause.
type Tree struct {
	Root *Node
	// Text is the clause reconstructed from the tokens that built it.
	Text string
	Kind model.RecordKind
}

// Compile builds a tree from the tokens between `where` and the end of the
// statement. The tokens are consumed back to front, so logical operators
// associate to the left and share one precedence.
func Compile(tokens []lexer.Token, kind model.RecordKind, cat catalog.Catalog) (*Tree, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	terms, err := retain(tokens)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		row, col := 0, 0
		if len(tokens) > 0 {
			row, col = tokens[0].Row, tokens[0].Col
		}
		return nil, errorf(InvalidTermPosition, row, col, "where clause has no terms")
	}

	b := &builder{terms: terms, pos: len(terms) - 1, kind: kind, cat: cat}
	root, err := b.build()
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Text: lexer.Reconstruct(terms), Kind: kind}, nil
}

// retain keeps the tokens that can take part in a predicate. Comments and
// whitespace are dropped; anything else is out of place.
func retain(tokens []lexer.Token) ([]lexer.Token, error) {
	terms := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Family() {
		case lexer.FamilyComment, lexer.FamilyWhitespace:
			continue
		case lexer.FamilyLiteral, lexer.FamilyRelative, lexer.FamilyState,
			lexer.FamilyLogical, lexer.FamilyFieldReference, lexer.FamilyAttribute:
			terms = append(terms, tok)
		default:
			return nil, errorf(InvalidTermPosition, tok.Row, tok.Col, "%q cannot appear in a where clause", tok.Text)
		}
	}
	return terms, nil
}

type builder struct {
	terms []lexer.Token
	pos   int // index of the next unconsumed token, moving toward 0
	kind  model.RecordKind
	cat   catalog.Catalog
}

func (b *builder) top(offset int) (lexer.Token, bool) {
	i := b.pos - offset
	if i < 0 {
		return lexer.Token{}, false
	}
	return b.terms[i], true
}

func (b *builder) build() (*Node, error) {
	rhs, err := b.term()
	if err != nil {
		return nil, err
	}
	if b.pos < 0 {
		return rhs, nil
	}
	tok := b.terms[b.pos]
	if tok.Family() != lexer.FamilyLogical {
		return nil, errorf(InvalidTermPosition, tok.Row, tok.Col, "expected and/or before %q", tok.Text)
	}
	op, _ := opFromToken(tok.Type)
	b.pos--
	if b.pos < 0 {
		return nil, errorf(InvalidTermPosition, tok.Row, tok.Col, "%q has no left operand", tok.Text)
	}
	lhs, err := b.build()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeLogical, Op: op, Row: tok.Row, Col: tok.Col, Lhs: lhs, Rhs: rhs}, nil
}

// term consumes one comparison or attribute term ending at the cursor.
func (b *builder) term() (*Node, error) {
	last, ok := b.top(0)
	if !ok {
		return nil, errorf(InvalidTermPosition, 0, 0, "missing term")
	}
	prev, hasPrev := b.top(1)
	switch {
	case hasPrev && prev.Family() == lexer.FamilyRelative:
		first, ok := b.top(2)
		if !ok {
			return nil, errorf(InvalidTermPosition, prev.Row, prev.Col, "%q has no left operand", prev.Text)
		}
		if before, ok := b.top(3); ok && before.Family() == lexer.FamilyRelative {
			return nil, errorf(InvalidTermPosition, before.Row, before.Col, "%q cannot follow a comparison operand", before.Text)
		}
		n, err := b.comparison(first, prev, last)
		if err != nil {
			return nil, err
		}
		b.pos -= 3
		return n, nil
	case hasPrev && prev.Family() == lexer.FamilyState:
		n, err := Attribute(prev, last, b.kind)
		if err != nil {
			return nil, err
		}
		b.pos -= 2
		return n, nil
	}
	return nil, errorf(InvalidTermPosition, last.Row, last.Col, "%q is not part of a comparison or attribute term", last.Text)
}

// Attribute builds a has/has-not node from a state operator and an
// attribute name. Attribute terms only apply to filesystem records.
func Attribute(op, attr lexer.Token, kind model.RecordKind) (*Node, error) {
	if attr.Type != lexer.TokenAttribute {
		return nil, errorf(InvalidTermPosition, attr.Row, attr.Col, "%q is not a file attribute", attr.Text)
	}
	if kind != model.KindFilesystem {
		return nil, errorf(InvalidUseOfHasOrHasNot, op.Row, op.Col, "attribute terms apply only to filesystem records, not %s", kind)
	}
	o, ok := opFromToken(op.Type)
	if !ok || (o != OpHas && o != OpHasNot) {
		return nil, errorf(UnknownOperatorType, op.Row, op.Col, "unknown attribute operator %q", op.Text)
	}
	flag, _ := attr.Value.(int64)
	return &Node{Kind: NodeAttribute, Op: o, Row: op.Row, Col: op.Col, Flag: flag, Attr: attr.Text}, nil
}

func (b *builder) comparison(first, opTok, last lexer.Token) (*Node, error) {
	op, ok := opFromToken(opTok.Type)
	if !ok || op == OpAnd || op == OpOr || op == OpHas || op == OpHasNot {
		return nil, errorf(UnknownOperatorType, opTok.Row, opTok.Col, "unknown comparison operator %q", opTok.Text)
	}
	left, err := b.value(first)
	if err != nil {
		return nil, err
	}
	right, err := b.value(last)
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: NodeComparison, Op: op, Row: first.Row, Col: first.Col, Left: left, Right: right}

	if left.Type != right.Type {
		return nil, errorf(TypeMismatch, opTok.Row, opTok.Col, "cannot compare %s with %s", left.Type, right.Type)
	}
	switch {
	case op == OpLike:
		if left.Type != model.TypeString {
			return nil, errorf(InvalidUseOfLike, opTok.Row, opTok.Col, "~ needs string operands, got %s", left.Type)
		}
		pattern, ok := right.Literal.(string)
		if right.Kind != ValueLiteral || !ok {
			return nil, errorf(InvalidUseOfLike, opTok.Row, opTok.Col, "~ needs a literal pattern on the right")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errorf(InvalidUseOfLike, last.Row, last.Col, "invalid pattern %q: %v", pattern, err)
		}
		n.Pattern = re
	case op.Ordering() && !left.Type.Ordered():
		return nil, errorf(OperatorTypeMismatch, opTok.Row, opTok.Col, "%s cannot be applied to %s values", op, left.Type)
	}
	return n, nil
}

func (b *builder) value(tok lexer.Token) (Value, error) {
	v := Value{Kind: ValueLiteral, Text: tok.Text, Row: tok.Row, Col: tok.Col, Literal: tok.Value}
	switch tok.Type {
	case lexer.TokenString:
		v.Type = model.TypeString
	case lexer.TokenWholeNumber:
		v.Type = model.TypeWholeNumber
	case lexer.TokenRealNumber:
		v.Type = model.TypeRealNumber
	case lexer.TokenDateTime:
		v.Type = model.TypeDateTime
	case lexer.TokenBookmark:
		v.Type = model.TypeBookmark
	case lexer.TokenNow:
		return Value{Kind: ValueNow, Type: model.TypeDateTime, Text: tok.Text, Row: tok.Row, Col: tok.Col}, nil
	case lexer.TokenColumnRef:
		ref, _ := tok.Value.(catalog.Column)
		return b.field(tok, ref.Name)
	default:
		slug, ok := lexer.Slug(tok.Type)
		if !ok {
			return Value{}, errorf(InvalidTermPosition, tok.Row, tok.Col, "%q is not a value", tok.Text)
		}
		return b.field(tok, slug)
	}
	if !validLiteral(v.Literal, v.Type) {
		return Value{}, errorf(TypeMismatch, tok.Row, tok.Col, "literal %q does not decode to %s", tok.Text, v.Type)
	}
	return v, nil
}

func (b *builder) field(tok lexer.Token, name string) (Value, error) {
	col, ok := b.cat.Lookup(b.kind, name)
	if !ok {
		return Value{}, errorf(UnknownColumnReferenced, tok.Row, tok.Col, "%s records have no column %q", b.kind, tok.Text)
	}
	if !col.Type.Comparable() {
		return Value{}, errorf(InvalidColumnTypeReferenced, tok.Row, tok.Col, "column %q holds %s and cannot be compared", col.Name, col.Type)
	}
	return Value{Kind: ValueField, Type: col.Type, Column: col.Name, Text: tok.Text, Row: tok.Row, Col: tok.Col}, nil
}

func validLiteral(lit any, t model.ValueType) bool {
	switch lit.(type) {
	case string:
		return t == model.TypeString || t == model.TypeBookmark
	case int64:
		return t == model.TypeWholeNumber
	case float64:
		return t == model.TypeRealNumber
	case time.Time:
		return t == model.TypeDateTime
	}
	return false
}
