package contracts

import (
	"context"
	"fmt"
	"time"
)

// Tick is the smallest time step; the last window of a series ends one
// tick after the final trading date so the half-open range still contains it.
const Tick = time.Second

// DateLayout is the day format used in queries, keys and API parameters
const DateLayout = "2006-01-02"

// DateRange is a half-open interval [Start, End)
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t lies in [Start, End)
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether two half-open ranges share any instant
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Empty reports whether the range contains no instant
func (r DateRange) Empty() bool {
	return !r.Start.Before(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Query selects a span of trading sessions.
// Last > 0 takes the last N sessions (optionally bounded by End);
// otherwise sessions in [Start, End) are returned, zero bounds are open.
type Query struct {
	Last  int       `json:"last,omitempty" yaml:"last,omitempty"`
	Start time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// LastN builds a query for the last n sessions
func LastN(n int) Query {
	return Query{Last: n}
}

// Between builds a query for sessions in [start, end)
func Between(start, end time.Time) Query {
	return Query{Start: start, End: end}
}

// Key returns a stable string form, used for cache keys and logs
func (q Query) Key() string {
	start, end := "-", "-"
	if !q.Start.IsZero() {
		start = q.Start.UTC().Format(time.RFC3339)
	}
	if !q.End.IsZero() {
		end = q.End.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("last=%d:start=%s:end=%s", q.Last, start, end)
}

// TradingCalendar resolves a query into trading dates
// ⭐ SSOT: 거래일 조회 인터페이스
type TradingCalendar interface {
	// Resolve returns strictly increasing, duplicate-free dates.
	// An empty result means the query matched no sessions.
	Resolve(ctx context.Context, q Query) ([]time.Time, error)
}

// ApplyQuery filters a sorted, deduplicated date list by q.
// Shared by the in-memory calendars so they agree on semantics.
func ApplyQuery(dates []time.Time, q Query) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !q.Start.IsZero() && d.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && !d.Before(q.End) {
			continue
		}
		out = append(out, d)
	}

	if q.Last > 0 && len(out) > q.Last {
		out = out[len(out)-q.Last:]
	}
	return out
}
