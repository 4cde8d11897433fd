package interp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hashward/hdsl/internal/lexer"
)

// parseInterval reads a ward interval: N days, H:M, H:M:S, D:H:M:S, or a
// duration string such as '90m'.
func (r *run) parseInterval() (time.Duration, error) {
	tok := r.peek()
	switch tok.Type {
	case lexer.TokenString:
		r.pos++
		d, err := time.ParseDuration(tok.Value.(string))
		if err != nil {
			return 0, errorAt(tok, "invalid interval %s: %v", tok.Text, err)
		}
		if d <= 0 {
			return 0, errorAt(tok, "interval must be positive")
		}
		return d, nil
	case lexer.TokenWholeNumber:
		r.pos++
		parts := []int64{tok.Value.(int64)}
		for {
			if _, ok := r.accept(lexer.TokenColon); !ok {
				break
			}
			n, err := r.expect("a number", lexer.TokenWholeNumber)
			if err != nil {
				return 0, err
			}
			parts = append(parts, n.Value.(int64))
		}
		d, err := intervalFromParts(parts)
		if err != nil {
			return 0, errorAt(tok, "%v", err)
		}
		return d, nil
	}
	return 0, unexpected(tok, "an interval")
}

var errIntervalTooLarge = errors.New("interval too large")

func intervalFromParts(parts []int64) (time.Duration, error) {
	const day = 24 * time.Hour
	var units []time.Duration
	switch len(parts) {
	case 1:
		units = []time.Duration{day}
	case 2:
		units = []time.Duration{time.Hour, time.Minute}
	case 3:
		units = []time.Duration{time.Hour, time.Minute, time.Second}
	case 4:
		units = []time.Duration{day, time.Hour, time.Minute, time.Second}
	default:
		return 0, fmt.Errorf("interval has %d fields, at most 4 (D:H:M:S) are allowed", len(parts))
	}

	var d time.Duration
	for i, n := range parts {
		if n < 0 || n > math.MaxInt64/int64(units[i]) {
			return 0, errIntervalTooLarge
		}
		field := time.Duration(n) * units[i]
		if d > math.MaxInt64-field {
			return 0, errIntervalTooLarge
		}
		d += field
	}
	if d <= 0 {
		return 0, errors.New("interval must be positive")
	}
	return d, nil
}
