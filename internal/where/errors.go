package where

import "fmt"

// ErrorKind classifies where-clause compile and evaluation errors.
type ErrorKind int

const (
	InvalidTermPosition ErrorKind = iota
	InvalidUseOfHasOrHasNot
	TypeMismatch
	UnknownOperatorType
	InvalidColumnTypeReferenced
	UnknownColumnReferenced
	InvalidUseOfLike
	OperatorTypeMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidTermPosition:
		return "InvalidTermPosition"
	case InvalidUseOfHasOrHasNot:
		return "InvalidUseOfHasOrHasNot"
	case TypeMismatch:
		return "TypeMismatch"
	case UnknownOperatorType:
		return "UnknownOperatorType"
	case InvalidColumnTypeReferenced:
		return "InvalidColumnTypeReferenced"
	case UnknownColumnReferenced:
		return "UnknownColumnReferenced"
	case InvalidUseOfLike:
		return "InvalidUseOfLike"
	case OperatorTypeMismatch:
		return "OperatorTypeMismatch"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a where-clause error tagged with its source position.
type Error struct {
	Kind ErrorKind
	Row  int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func errorf(kind ErrorKind, row, col int, format string, args ...any) *Error {
	return &Error{Kind: kind, Row: row, Col: col, Msg: fmt.Sprintf(format, args...)}
}
