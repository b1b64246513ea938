package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// Static is an in-memory trading calendar built from a fixed date list
type Static struct {
	dates []time.Time
}

// Compile-time interface check.
var _ contracts.TradingCalendar = (*Static)(nil)

// NewStatic sorts and deduplicates dates
func NewStatic(dates []time.Time) *Static {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	uniq := sorted[:0]
	for i, d := range sorted {
		if i > 0 && d.Equal(uniq[len(uniq)-1]) {
			continue
		}
		uniq = append(uniq, d)
	}

	return &Static{dates: uniq}
}

// Weekdays builds a calendar of n consecutive Monday-Friday sessions
// starting at the first weekday on or after from (truncated to the day).
func Weekdays(from time.Time, n int) *Static {
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	dates := make([]time.Time, 0, n)
	for len(dates) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return &Static{dates: dates}
}

// Resolve applies the query to the stored dates
func (s *Static) Resolve(ctx context.Context, q contracts.Query) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return contracts.ApplyQuery(s.dates, q), nil
}

// Dates returns a copy of all sessions
func (s *Static) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Len returns the number of sessions
func (s *Static) Len() int {
	return len(s.dates)
}
