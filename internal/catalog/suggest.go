package catalog

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/hashward/hdsl/internal/model"
)

// maxSuggestDistance is the largest edit distance Suggest accepts.
const maxSuggestDistance = 2

// Suggest returns the column name or alias of kind closest to ident, or ""
// when nothing is within two edits.
func Suggest(c Catalog, kind model.RecordKind, ident string) string {
	best, bestDist := "", maxSuggestDistance+1
	ident = strings.ToLower(ident)
	for _, col := range c.Columns(kind) {
		for _, cand := range []string{col.Name, col.Alias} {
			if cand == "" {
				continue
			}
			if d := fuzzy.LevenshteinDistance(ident, strings.ToLower(cand)); d < bestDist {
				best, bestDist = cand, d
			}
		}
	}
	return best
}
