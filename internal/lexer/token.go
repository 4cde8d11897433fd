// Package lexer tokenizes HDSL source text.
package lexer

import (
	"fmt"
	"strings"
)

// Type is the closed set of HDSL token types.
type Type int

const (
	TokenEndOfLine Type = iota // ; or the synthetic terminator
	TokenEndOfFile
	TokenComment
	TokenWhitespace

	// Literals
	TokenString
	TokenWholeNumber
	TokenRealNumber
	TokenDateTime
	TokenBookmark

	// Structural punctuation
	TokenComma
	TokenColon
	TokenPeriod

	// Relative operators
	TokenEquals
	TokenNotEquals
	TokenGreater
	TokenGreaterOrEqual
	TokenLess
	TokenLessOrEqual
	TokenLike

	// State operators
	TokenHas    // +
	TokenHasNot // -

	// Logical operators
	TokenAnd
	TokenOr

	// Field references
	TokenColumnRef // identifier resolved through the catalog
	TokenSize
	TokenWritten
	TokenAccessed
	TokenCreated
	TokenExtension
	TokenLastScan
	TokenFirstScan
	TokenName
	TokenNow

	TokenAttribute

	// Statement keywords
	TokenFind
	TokenScan
	TokenCheck
	TokenPurge
	TokenExclude
	TokenInclude
	TokenWard
	TokenWatch
	TokenSet
	TokenReset

	// Record kinds
	TokenFilesystem
	TokenWards
	TokenWatches
	TokenHashLogs

	// Clause keywords
	TokenColumns
	TokenIn
	TokenWithin
	TokenUnder
	TokenWhere
	TokenGroup
	TokenOrder
	TokenAsc
	TokenDesc
	TokenPage
	TokenDynamic
	TokenPassive
	TokenStdout
	TokenStderr
	TokenColumn
	TokenAlias
	TokenWidth

	tokenTypeCount
)

// Family groups token types for filtering.
type Family int

const (
	FamilyMetadata Family = iota
	FamilyComment
	FamilyWhitespace
	FamilyLiteral
	FamilyStructural
	FamilyRelative
	FamilyState
	FamilyLogical
	FamilyFieldReference
	FamilyAttribute
	FamilyKeyword
)

var familyNames = [...]string{
	FamilyMetadata:       "metadata",
	FamilyComment:        "comment",
	FamilyWhitespace:     "whitespace",
	FamilyLiteral:        "literal",
	FamilyStructural:     "structural",
	FamilyRelative:       "relative",
	FamilyState:          "state",
	FamilyLogical:        "logical",
	FamilyFieldReference: "field",
	FamilyAttribute:      "attribute",
	FamilyKeyword:        "keyword",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "unknown"
}

var typeNames = [tokenTypeCount]string{
	TokenEndOfLine:      "eol",
	TokenEndOfFile:      "eof",
	TokenComment:        "comment",
	TokenWhitespace:     "whitespace",
	TokenString:         "string",
	TokenWholeNumber:    "wholenumber",
	TokenRealNumber:     "realnumber",
	TokenDateTime:       "datetime",
	TokenBookmark:       "bookmark",
	TokenComma:          "comma",
	TokenColon:          "colon",
	TokenPeriod:         "period",
	TokenEquals:         "equals",
	TokenNotEquals:      "notequals",
	TokenGreater:        "greaterthan",
	TokenGreaterOrEqual: "greaterthanorequal",
	TokenLess:           "lessthan",
	TokenLessOrEqual:    "lessthanorequal",
	TokenLike:           "like",
	TokenHas:            "has",
	TokenHasNot:         "hasnot",
	TokenAnd:            "and",
	TokenOr:             "or",
	TokenColumnRef:      "columnref",
	TokenSize:           "size",
	TokenWritten:        "written",
	TokenAccessed:       "accessed",
	TokenCreated:        "created",
	TokenExtension:      "extension",
	TokenLastScan:       "lastscan",
	TokenFirstScan:      "firstscan",
	TokenName:           "name",
	TokenNow:            "now",
	TokenAttribute:      "attribute",
	TokenFind:           "find",
	TokenScan:           "scan",
	TokenCheck:          "check",
	TokenPurge:          "purge",
	TokenExclude:        "exclude",
	TokenInclude:        "include",
	TokenWard:           "ward",
	TokenWatch:          "watch",
	TokenSet:            "set",
	TokenReset:          "reset",
	TokenFilesystem:     "filesystem",
	TokenWards:          "wards",
	TokenWatches:        "watches",
	TokenHashLogs:       "hashlogs",
	TokenColumns:        "columns",
	TokenIn:             "in",
	TokenWithin:         "within",
	TokenUnder:          "under",
	TokenWhere:          "where",
	TokenGroup:          "group",
	TokenOrder:          "order",
	TokenAsc:            "asc",
	TokenDesc:           "desc",
	TokenPage:           "page",
	TokenDynamic:        "dynamic",
	TokenPassive:        "passive",
	TokenStdout:         "stdout",
	TokenStderr:         "stderr",
	TokenColumn:         "column",
	TokenAlias:          "alias",
	TokenWidth:          "width",
}

func (t Type) String() string {
	if t >= 0 && t < tokenTypeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType resolves a token type name (case-insensitive), as used in
// allow-lists.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return 0, false
}

// Family returns the classification of the token type.
func (t Type) Family() Family {
	switch {
	case t == TokenEndOfLine || t == TokenEndOfFile:
		return FamilyMetadata
	case t == TokenComment:
		return FamilyComment
	case t == TokenWhitespace:
		return FamilyWhitespace
	case t >= TokenString && t <= TokenBookmark:
		return FamilyLiteral
	case t >= TokenComma && t <= TokenPeriod:
		return FamilyStructural
	case t >= TokenEquals && t <= TokenLike:
		return FamilyRelative
	case t == TokenHas || t == TokenHasNot:
		return FamilyState
	case t == TokenAnd || t == TokenOr:
		return FamilyLogical
	case t >= TokenColumnRef && t <= TokenNow:
		return FamilyFieldReference
	case t == TokenAttribute:
		return FamilyAttribute
	default:
		return FamilyKeyword
	}
}

// IsRecordKind reports whether the type is one of the record-kind keywords.
func (t Type) IsRecordKind() bool {
	return t >= TokenFilesystem && t <= TokenHashLogs
}

// IsDepthMode reports whether the type is in, within or under.
func (t Type) IsDepthMode() bool {
	return t == TokenIn || t == TokenWithin || t == TokenUnder
}

// Token is one lexeme of HDSL source.
type Token struct {
	Type Type
	Row  int
	Col  int
	// Text is the raw source text of the token.
	Text string
	// Value is the decoded literal: string for strings and bookmark names,
	// int64 for whole numbers and attribute flags, float64 for real numbers,
	// time.Time for datetimes, catalog.Column for column references.
	Value any
}

// Family returns the token's classification.
func (t Token) Family() Family { return t.Type.Family() }

// Is reports whether the token has any of the given types.
func (t Token) Is(types ...Type) bool {
	for _, ty := range types {
		if t.Type == ty {
			return true
		}
	}
	return false
}

// Significant reports whether the token matters to the grammar.
func (t Token) Significant() bool {
	f := t.Family()
	return f != FamilyComment && f != FamilyWhitespace
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Type, t.Text)
}
