package where

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashward/hdsl/internal/model"
)

// ValueKind says how a Value obtains its data.
type ValueKind int

const (
	// ValueLiteral holds a constant decoded from the source.
	ValueLiteral ValueKind = iota
	// ValueField reads a column from the record under evaluation.
	ValueField
	// ValueNow is the timestamp captured once per interpretation run.
	ValueNow
)

// EvalContext carries per-run evaluation state.
type EvalContext struct {
	Now time.Time
}

// Value is one operand of a comparison. Its Type is fixed at construction.
type Value struct {
	Kind    ValueKind
	Type    model.ValueType
	Literal any    // string, int64, float64 or time.Time for literals
	Column  string // canonical column name for field references
	Text    string
	Row     int
	Col     int
}

// Resolve returns the Go value of the operand for a record.
func (v Value) Resolve(rec model.Record, ctx EvalContext) (any, error) {
	switch v.Kind {
	case ValueNow:
		return ctx.Now, nil
	case ValueField:
		raw, ok := rec[v.Column]
		if !ok {
			return nil, errorf(UnknownColumnReferenced, v.Row, v.Col, "record has no column %q", v.Column)
		}
		if !matchesType(raw, v.Type) {
			return nil, errorf(TypeMismatch, v.Row, v.Col, "column %q holds %T, expected %s", v.Column, raw, v.Type)
		}
		return raw, nil
	default:
		return v.Literal, nil
	}
}

func matchesType(raw any, t model.ValueType) bool {
	switch raw.(type) {
	case string:
		return t == model.TypeString || t == model.TypeBookmark
	case int64:
		return t == model.TypeWholeNumber || t == model.TypeFlags
	case float64:
		return t == model.TypeRealNumber
	case time.Time:
		return t == model.TypeDateTime
	}
	return false
}

// SQL renders the operand as a SQL expression.
func (v Value) SQL(ctx EvalContext) string {
	switch v.Kind {
	case ValueField:
		return v.Column
	case ValueNow:
		return strconv.FormatInt(ctx.Now.Unix(), 10)
	}
	return literalSQL(v.Literal)
}

func literalSQL(lit any) string {
	switch val := lit.(type) {
	case string:
		return QuoteSQL(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return strconv.FormatInt(val.Unix(), 10)
	}
	return fmt.Sprintf("%v", lit)
}

// QuoteSQL quotes s as a SQL string literal.
func QuoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (v Value) String() string {
	switch v.Kind {
	case ValueField:
		return v.Column
	case ValueNow:
		return "now"
	}
	switch val := v.Literal.(type) {
	case string:
		if v.Type == model.TypeBookmark {
			return "[" + val + "]"
		}
		return "'" + val + "'"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(v.Literal)
}
