package lexer

import "strings"

var keywords = map[string]Type{
	"and":        TokenAnd,
	"or":         TokenOr,
	"size":       TokenSize,
	"written":    TokenWritten,
	"accessed":   TokenAccessed,
	"created":    TokenCreated,
	"extension":  TokenExtension,
	"lastscan":   TokenLastScan,
	"firstscan":  TokenFirstScan,
	"name":       TokenName,
	"now":        TokenNow,
	"find":       TokenFind,
	"scan":       TokenScan,
	"check":      TokenCheck,
	"purge":      TokenPurge,
	"exclude":    TokenExclude,
	"include":    TokenInclude,
	"ward":       TokenWard,
	"watch":      TokenWatch,
	"set":        TokenSet,
	"reset":      TokenReset,
	"filesystem": TokenFilesystem,
	"wards":      TokenWards,
	"watches":    TokenWatches,
	"hashlogs":   TokenHashLogs,
	"columns":    TokenColumns,
	"in":         TokenIn,
	"within":     TokenWithin,
	"under":      TokenUnder,
	"where":      TokenWhere,
	"group":      TokenGroup,
	"order":      TokenOrder,
	"asc":        TokenAsc,
	"desc":       TokenDesc,
	"page":       TokenPage,
	"dynamic":    TokenDynamic,
	"passive":    TokenPassive,
	"stdout":     TokenStdout,
	"stderr":     TokenStderr,
	"column":     TokenColumn,
	"alias":      TokenAlias,
	"width":      TokenWidth,
}

// LookupKeyword resolves an identifier against the keyword table.
func LookupKeyword(ident string) (Type, bool) {
	t, ok := keywords[strings.ToLower(ident)]
	return t, ok
}

// IsReserved reports whether ident is a keyword, and therefore unusable as a
// column alias.
func IsReserved(ident string) bool {
	_, ok := LookupKeyword(ident)
	return ok
}

// Slug returns the canonical column name a field-reference keyword refers to.
func Slug(t Type) (string, bool) {
	switch t {
	case TokenSize:
		return "size", true
	case TokenWritten:
		return "written", true
	case TokenAccessed:
		return "accessed", true
	case TokenCreated:
		return "created", true
	case TokenExtension:
		return "extension", true
	case TokenLastScan:
		return "lastscan", true
	case TokenFirstScan:
		return "firstscan", true
	case TokenName:
		return "name", true
	}
	return "", false
}
