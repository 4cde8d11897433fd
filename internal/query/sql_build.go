package query

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashward/hdsl/internal/model"
)

// conditions returns the WHERE conditions and args shared by every
// statement built from the query.
func (q *FindQuery) conditions() ([]string, []any) {
	var conds []string
	var args []any

	if q.Kind == model.KindFilesystem && len(q.Paths) > 0 {
		cond, scopeArgs := ScopeSQL(q.Depth, q.Paths)
		conds = append(conds, cond)
		args = append(args, scopeArgs...)
	}
	if q.FilesOnly && q.Kind == model.KindFilesystem {
		conds = append(conds, fmt.Sprintf("attributes & %d = 0", model.AttrDirectory))
	}
	if q.Predicate != "" {
		conds = append(conds, q.Predicate)
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// ScopeSQL translates a depth mode and path list into a condition over the
// path and parent columns. Multiple paths are ORed.
func ScopeSQL(depth model.DepthMode, paths []string) (string, []any) {
	parts := make([]string, 0, len(paths))
	args := make([]any, 0, len(paths)*2)
	for _, p := range paths {
		switch depth {
		case model.DepthIn:
			parts = append(parts, "parent = ?")
			args = append(args, p)
		case model.DepthUnder:
			prefix := childPrefix(p)
			parts = append(parts, childCond)
			args = append(args, prefix, prefix)
		default:
			prefix := childPrefix(p)
			parts = append(parts, "(path = ? OR "+childCond+")")
			args = append(args, p, prefix, prefix)
		}
	}
	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// childCond is a case-sensitive prefix test; SQLite's LIKE folds ASCII case.
const childCond = "substr(path, 1, length(?)) = ?"

func childPrefix(dir string) string {
	sep := string(filepath.Separator)
	return strings.TrimSuffix(dir, sep) + sep
}

func (q *FindQuery) orderClause() string {
	order := q.Order
	if len(order) == 0 {
		order = []Sort{{Column: DefaultSortColumn}}
	}
	parts := make([]string, len(order))
	for i, s := range order {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts[i] = s.Column + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (q *FindQuery) groupClause() string {
	if len(q.Group) == 0 {
		return ""
	}
	return " GROUP BY " + strings.Join(q.Group, ", ")
}

// SelectSQL builds the paged SELECT for the query's projected columns.
func (q *FindQuery) SelectSQL(columns []string) (string, []any) {
	conds, args := q.conditions()
	sqlStr := fmt.Sprintf("SELECT %s FROM %s%s%s%s LIMIT ? OFFSET ?",
		strings.Join(columns, ", "),
		q.Kind.Table(),
		whereClause(conds),
		q.groupClause(),
		q.orderClause(),
	)
	args = append(args, q.size(), q.Offset())
	return sqlStr, args
}

// CountSQL builds a query returning the total number of records (or groups)
// the query matches, ignoring paging.
func (q *FindQuery) CountSQL() (string, []any) {
	conds, args := q.conditions()
	if len(q.Group) > 0 {
		return fmt.Sprintf("SELECT COUNT(*) FROM (SELECT 1 FROM %s%s%s)",
			q.Kind.Table(), whereClause(conds), q.groupClause()), args
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.Kind.Table(), whereClause(conds)), args
}

// PathsSQL builds an unpaged query listing the path of every match.
func (q *FindQuery) PathsSQL() (string, []any) {
	conds, args := q.conditions()
	return fmt.Sprintf("SELECT path FROM %s%s ORDER BY path", q.Kind.Table(), whereClause(conds)), args
}

// DeleteSQL builds a DELETE of every match.
func (q *FindQuery) DeleteSQL() (string, []any) {
	conds, args := q.conditions()
	return fmt.Sprintf("DELETE FROM %s%s", q.Kind.Table(), whereClause(conds)), args
}
