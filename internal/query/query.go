// Package query describes HDSL find queries and builds the SQL that runs
// them against the record tables.
package query

import (
	"math"

	"github.com/hashward/hdsl/internal/model"
)

// PageSize is the fixed number of records per page.
const PageSize = 32

// MaxPage is the largest page whose offset fits an int64.
const MaxPage = math.MaxInt64 / PageSize

// DefaultSortColumn is used when a query has no order clause.
const DefaultSortColumn = "path"

// Sort is one ORDER BY column.
type Sort struct {
	Column string
	Desc   bool
}

// FindQuery is the resolved form of the find sub-grammar shared by find,
// purge, check and ward.
type FindQuery struct {
	Kind model.RecordKind
	// Columns lists the projected canonical column names. Empty means the
	// kind's full column set.
	Columns []string
	Depth   model.DepthMode
	// Paths scopes filesystem queries. It is ignored for other kinds.
	Paths []string
	// Predicate is the rendered where clause, or "".
	Predicate string
	// FilesOnly excludes directory records.
	FilesOnly bool
	Group     []string
	Order     []Sort
	Page      int
	PageSize  int
}

// New returns a query over kind with the default sort and paging.
func New(kind model.RecordKind) *FindQuery {
	return &FindQuery{
		Kind:     kind,
		Depth:    model.DepthWithin,
		Order:    []Sort{{Column: DefaultSortColumn}},
		PageSize: PageSize,
	}
}

// SetOrder replaces the sort columns. The direction applies to every
// column. An empty list restores the default.
func (q *FindQuery) SetOrder(columns []string, desc bool) {
	if len(columns) == 0 {
		q.Order = []Sort{{Column: DefaultSortColumn, Desc: desc}}
		return
	}
	q.Order = make([]Sort, len(columns))
	for i, c := range columns {
		q.Order[i] = Sort{Column: c, Desc: desc}
	}
}

// Offset returns the row offset of the requested page, saturating at the
// largest representable offset.
func (q *FindQuery) Offset() int {
	size := q.size()
	if q.Page > math.MaxInt/size {
		return math.MaxInt
	}
	return q.Page * size
}

// PageCount returns the number of pages needed for total records.
func (q *FindQuery) PageCount(total int) int {
	size := q.size()
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func (q *FindQuery) size() int {
	if q.PageSize <= 0 {
		return PageSize
	}
	return q.PageSize
}
