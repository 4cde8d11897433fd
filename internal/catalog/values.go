package catalog

import (
	"time"

	"github.com/hashward/hdsl/internal/model"
)

// ZeroValue returns the zero value used for a backing type.
func ZeroValue(t model.ValueType) any {
	switch t {
	case model.TypeWholeNumber, model.TypeFlags:
		return int64(0)
	case model.TypeRealNumber:
		return float64(0)
	case model.TypeDateTime:
		return time.Unix(0, 0)
	default:
		return ""
	}
}
