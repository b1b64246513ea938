package selection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/optimal-selector/internal/calendar"
	"github.com/wonny/optimal-selector/internal/contracts"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func weekdays(n int) *calendar.Static {
	return calendar.Weekdays(epoch, n)
}

// scoreFunc maps a training range to a score
type scoreFunc func(r contracts.DateRange) (float64, error)

// fakeSystem scores ranges through a function and counts calls
type fakeSystem struct {
	name       string
	instrument string
	score      scoreFunc
	prototype  bool

	clones     *atomic.Int64
	protoEvals *atomic.Int64
}

func newFake(name string, score scoreFunc) *fakeSystem {
	return &fakeSystem{
		name:       name,
		instrument: "sz000001",
		score:      score,
		prototype:  true,
		clones:     &atomic.Int64{},
		protoEvals: &atomic.Int64{},
	}
}

func (f *fakeSystem) Name() string       { return f.name }
func (f *fakeSystem) Instrument() string { return f.instrument }

func (f *fakeSystem) Clone() contracts.System {
	f.clones.Add(1)
	c := *f
	c.prototype = false
	return &c
}

func (f *fakeSystem) Evaluate(ctx context.Context, r contracts.DateRange) (contracts.Performance, error) {
	if f.prototype {
		f.protoEvals.Add(1)
	}
	v, err := f.score(r)
	if err != nil {
		return nil, err
	}
	return contracts.Performance{contracts.MetricEndingEquity: v}, nil
}

func (f *fakeSystem) Spec() contracts.SystemSpec {
	return contracts.SystemSpec{Kind: "fake", Name: f.name, Instrument: f.instrument}
}

// tableScores scores window k (train starting at starts[k]) with values[k]
func tableScores(starts []time.Time, values ...float64) scoreFunc {
	return func(r contracts.DateRange) (float64, error) {
		for k, s := range starts {
			if r.Start.Equal(s) {
				return values[k], nil
			}
		}
		return 0, fmt.Errorf("range %s: %w", r, contracts.ErrNoData)
	}
}

func constant(v float64) scoreFunc {
	return func(contracts.DateRange) (float64, error) { return v, nil }
}

// trainStarts returns the training start dates planned for the calendar
func trainStarts(t *testing.T, cal *calendar.Static, trainLen, testLen int) []time.Time {
	t.Helper()
	windows := PlanWindows(cal.Dates(), trainLen, testLen)
	require.NotEmpty(t, windows)
	starts := make([]time.Time, len(windows))
	for i, w := range windows {
		starts[i] = w.Train.Start
	}
	return starts
}

func winnerNames(views []WindowView) []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names
}

// countingRecorder records every observation
type countingRecorder struct {
	mu          sync.Mutex
	calculates  map[string]int
	evaluations map[string]int
	planned     int
	kept        int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{calculates: map[string]int{}, evaluations: map[string]int{}}
}

func (c *countingRecorder) ObserveCalculate(outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calculates[outcome]++
}

func (c *countingRecorder) ObserveEvaluation(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluations[outcome]++
}

func (c *countingRecorder) ObserveWindows(planned, kept int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planned += planned
	c.kept += kept
}
