package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optimal-selector/internal/backtest"
	"github.com/wonny/optimal-selector/internal/calendar"
	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/marketdata"
)

func newSelector(t *testing.T, cfg Config, cal contracts.TradingCalendar, opts ...Option) *Selector {
	t.Helper()
	sel, err := New(cfg, cal, nil, opts...)
	require.NoError(t, err)
	return sel
}

func TestNew_Defaults(t *testing.T) {
	sel := newSelector(t, Config{}, weekdays(10))

	cfg := sel.Config()
	assert.Equal(t, 30, cfg.TrainLen)
	assert.Equal(t, 20, cfg.TestLen)
	assert.Equal(t, ModeMax, cfg.Mode)
	assert.Equal(t, contracts.MetricEndingEquity, cfg.Metric)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, sel.Computed())
	assert.Empty(t, sel.Candidates())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative train", Config{TrainLen: -1}},
		{"negative test", Config{TestLen: -5}},
		{"unknown mode", Config{Mode: "median"}},
		{"too many workers", Config{Workers: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, weekdays(10), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSelector_AddCandidate(t *testing.T) {
	sel := newSelector(t, Config{}, weekdays(10))

	assert.ErrorIs(t, sel.AddCandidate(nil), ErrInvalidArgument)

	var typedNil *fakeSystem
	assert.ErrorIs(t, sel.AddCandidate(typedNil), ErrInvalidArgument)
	assert.Empty(t, sel.Candidates())

	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.AddCandidate(newFake("b", constant(2))))

	got := sel.Candidates()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "b", got[1].Name())
	assert.Equal(t, 1, got[1].Index)
}

func TestSelector_AddCandidatesPartialCommit(t *testing.T) {
	sel := newSelector(t, Config{}, weekdays(10))

	err := sel.AddCandidates([]contracts.System{
		newFake("a", constant(1)),
		newFake("b", constant(2)),
		nil,
		newFake("c", constant(3)),
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "candidate 2")

	got := sel.Candidates()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name())
	assert.Equal(t, "b", got[1].Name())
}

func TestSelector_FourCandidateScenario(t *testing.T) {
	cal := weekdays(125)
	starts := trainStarts(t, cal, 30, 20)
	require.Len(t, starts, 5)

	candidates := func() []contracts.System {
		return []contracts.System{
			newFake("ma_3_5", tableScores(starts, 1, 5, 3, 3, 2)),
			newFake("ma_3_10", tableScores(starts, 2, 5, 1, 3, 9)),
			newFake("ma_5_10", tableScores(starts, 3, 4, 1, 7, 2)),
			newFake("ma_5_20", tableScores(starts, 0, 1, 8, 7, 2)),
		}
	}

	tests := []struct {
		name     string
		mode     Mode
		parallel bool
		want     []string
	}{
		{"max", ModeMax, false, []string{"ma_5_10", "ma_3_5", "ma_5_20", "ma_5_10", "ma_3_10"}},
		{"max parallel", ModeMax, true, []string{"ma_5_10", "ma_3_5", "ma_5_20", "ma_5_10", "ma_3_10"}},
		{"min", ModeMin, false, []string{"ma_5_20", "ma_5_20", "ma_3_10", "ma_3_5", "ma_3_5"}},
		{"min parallel", ModeMin, true, []string{"ma_5_20", "ma_5_20", "ma_3_10", "ma_3_5", "ma_3_5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := newSelector(t, Config{TrainLen: 30, TestLen: 20, Mode: tt.mode, Parallel: tt.parallel, Workers: 3}, cal)
			require.NoError(t, sel.AddCandidates(candidates()))

			require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
			require.True(t, sel.Computed())

			views := sel.GetWindows()
			require.Len(t, views, 5)
			assert.Equal(t, tt.want, winnerNames(views))

			dates := cal.Dates()
			assert.True(t, views[0].Test.Start.Equal(dates[30]))
			assert.True(t, views[4].Test.End.Equal(dates[124].Add(contracts.Tick)))
		})
	}
}

func TestSelector_GetSelected(t *testing.T) {
	cal := weekdays(60)
	dates := cal.Dates()
	starts := trainStarts(t, cal, 20, 10)

	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, cal)
	require.NoError(t, sel.AddCandidates([]contracts.System{
		newFake("a", tableScores(starts, 1, 9, 1, 9)),
		newFake("b", tableScores(starts, 9, 1, 9, 1)),
	}))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"before first window", dates[19], ""},
		{"first window start", dates[20], "b"},
		{"first window last session", dates[29], "b"},
		{"second window", dates[30], "a"},
		{"third window mid", dates[45], "b"},
		{"final session", dates[59], "a"},
		{"within final tick", dates[59].Add(contracts.Tick - time.Nanosecond), "a"},
		{"after final tick", dates[59].Add(contracts.Tick), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sel.GetSelected(tt.at)
			if tt.want == "" {
				assert.Empty(t, got)
				assert.NotNil(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Candidate.Name())
			assert.Equal(t, 1.0, got[0].Weight)
		})
	}
}

func TestSelector_SelectedBetween(t *testing.T) {
	cal := weekdays(60)
	dates := cal.Dates()

	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, cal)
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

	views := sel.SelectedBetween(contracts.DateRange{Start: dates[25], End: dates[41]})
	require.Len(t, views, 3)
	assert.True(t, views[0].Test.Start.Equal(dates[20]))
	assert.True(t, views[2].Test.Start.Equal(dates[40]))

	// half-open: a range ending at a window start does not include it
	views = sel.SelectedBetween(contracts.DateRange{Start: dates[0], End: dates[30]})
	require.Len(t, views, 1)

	assert.Empty(t, sel.SelectedBetween(contracts.DateRange{Start: dates[0], End: dates[20]}))
	assert.Empty(t, sel.SelectedBetween(contracts.DateRange{Start: dates[30], End: dates[30]}))
}

func TestSelector_CalculateTwiceRequiresReset(t *testing.T) {
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

	err := sel.Calculate(context.Background(), nil, contracts.Query{})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, sel.GetWindows(), 4)

	sel.Reset()
	assert.False(t, sel.Computed())
	assert.Empty(t, sel.GetWindows())
	assert.Len(t, sel.Candidates(), 1, "reset keeps the pool")

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.LastN(50)))
	assert.Len(t, sel.GetWindows(), 3)
}

func TestSelector_RemoveAll(t *testing.T) {
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

	sel.RemoveAll()
	assert.False(t, sel.Computed())
	assert.Empty(t, sel.Candidates())

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	assert.False(t, sel.Computed(), "empty pool computes nothing")
}

func TestSelector_ExtrasAreTransient(t *testing.T) {
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(newFake("pooled", constant(1))))

	extra := []contracts.System{nil, newFake("extra", constant(5))}
	require.NoError(t, sel.Calculate(context.Background(), extra, contracts.Query{}))

	views := sel.GetWindows()
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.Equal(t, "extra", v.Name)
		assert.Equal(t, 1, v.Index, "extras are indexed after the pool")
	}
	require.Len(t, sel.Candidates(), 1)
	assert.Equal(t, "pooled", sel.Candidates()[0].Name())
}

func TestSelector_IncompleteCandidate(t *testing.T) {
	rec := newCountingRecorder()
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60), WithRecorder(rec))

	unset := newFake("unset", constant(1))
	unset.instrument = ""
	require.NoError(t, sel.AddCandidates([]contracts.System{newFake("a", constant(1)), unset}))

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	assert.False(t, sel.Computed())
	assert.Empty(t, sel.GetSelected(weekdays(60).Dates()[30]))
	assert.Equal(t, 1, rec.calculates[OutcomeNotReady])
	assert.Zero(t, unset.clones.Load(), "nothing is evaluated")
}

func TestSelector_EmptyCalendar(t *testing.T) {
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, calendar.NewStatic(nil))
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	assert.False(t, sel.Computed())

	short := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(20))
	require.NoError(t, short.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, short.Calculate(context.Background(), nil, contracts.Query{}))
	assert.False(t, short.Computed())
}

func TestSelector_WindowWithoutSurvivorsIsOmitted(t *testing.T) {
	cal := weekdays(60)
	starts := trainStarts(t, cal, 20, 10)

	// both candidates only have data for windows 0, 1 and 3
	partial := []time.Time{starts[0], starts[1], starts[3]}
	rec := newCountingRecorder()
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, cal, WithRecorder(rec))
	require.NoError(t, sel.AddCandidates([]contracts.System{
		newFake("a", tableScores(partial, 1, 2, 3)),
		newFake("b", tableScores(partial, 3, 2, 1)),
	}))

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	views := sel.GetWindows()
	require.Len(t, views, 3)
	assert.Equal(t, []string{"b", "a", "a"}, winnerNames(views))

	dates := cal.Dates()
	assert.Empty(t, sel.GetSelected(dates[45]), "omitted window has no selection")
	assert.Equal(t, 4, rec.planned)
	assert.Equal(t, 3, rec.kept)
	assert.Equal(t, 2, rec.evaluations[OutcomeFailed])
}

func TestSelector_FaultLeavesTableUntouched(t *testing.T) {
	boom := errors.New("connection reset")
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(newFake("broken", func(contracts.DateRange) (float64, error) { return 0, boom })))

	err := sel.Calculate(context.Background(), nil, contracts.Query{})
	require.ErrorIs(t, err, boom)
	assert.False(t, sel.Computed())
}

type failingCalendar struct{ err error }

func (f failingCalendar) Resolve(context.Context, contracts.Query) ([]time.Time, error) {
	return nil, f.err
}

func TestSelector_CalendarErrorPropagates(t *testing.T) {
	boom := errors.New("calendar down")
	sel := newSelector(t, Config{}, failingCalendar{err: boom})
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))

	assert.ErrorIs(t, sel.Calculate(context.Background(), nil, contracts.Query{}), boom)
	assert.False(t, sel.Computed())
}

func TestSelector_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
		require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sel.Calculate(ctx, nil, contracts.Query{}), context.Canceled)
		assert.False(t, sel.Computed())
	})

	t.Run("between windows", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
		require.NoError(t, sel.AddCandidate(newFake("a", func(contracts.DateRange) (float64, error) {
			calls++
			cancel()
			return 1, nil
		})))

		assert.ErrorIs(t, sel.Calculate(ctx, nil, contracts.Query{}), context.Canceled)
		assert.Equal(t, 1, calls)
		assert.False(t, sel.Computed())

		// the selector is usable again
		require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
		assert.True(t, sel.Computed())
	})
}

// blockingSystem parks inside Evaluate until released
func blockingSystem(started chan<- struct{}, release <-chan struct{}) *fakeSystem {
	return newFake("slow", func(contracts.DateRange) (float64, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return 1, nil
	})
}

func TestSelector_ConcurrentCalculateIsRejected(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(blockingSystem(started, release)))

	done := make(chan error, 1)
	go func() { done <- sel.Calculate(context.Background(), nil, contracts.Query{}) }()

	<-started
	assert.ErrorIs(t, sel.Calculate(context.Background(), nil, contracts.Query{}), ErrInvalidState)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, sel.Computed())
}

func TestSelector_ResetDuringCalculateDiscardsResult(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(blockingSystem(started, release)))

	done := make(chan error, 1)
	go func() { done <- sel.Calculate(context.Background(), nil, contracts.Query{}) }()

	<-started
	sel.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrInvalidState)
	assert.False(t, sel.Computed())
}

func TestSelector_SetConfigKeepsTable(t *testing.T) {
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60))
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

	require.NoError(t, sel.SetConfig(Config{TrainLen: 5, TestLen: 5, Mode: ModeMin}))
	assert.True(t, sel.Computed())
	assert.Len(t, sel.GetWindows(), 4)

	assert.ErrorIs(t, sel.SetConfig(Config{Mode: "best"}), ErrInvalidConfig)
	assert.Equal(t, ModeMin, sel.Config().Mode)
}

func TestSelector_RecordsCalculateOutcome(t *testing.T) {
	rec := newCountingRecorder()
	sel := newSelector(t, Config{TrainLen: 20, TestLen: 10}, weekdays(60), WithRecorder(rec))

	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	require.NoError(t, sel.AddCandidate(newFake("a", constant(1))))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	_ = sel.Calculate(context.Background(), nil, contracts.Query{})

	assert.Equal(t, 1, rec.calculates[OutcomeEmpty])
	assert.Equal(t, 1, rec.calculates[OutcomeOK])
	assert.Equal(t, 1, rec.calculates[OutcomeError])
	assert.Equal(t, 4, rec.evaluations[OutcomeOK])
}

// maSystems builds the four crossover candidates over synthetic prices
func maSystems(t *testing.T, store *marketdata.MemoryStore) []contracts.System {
	t.Helper()
	pairs := [][2]int{{3, 5}, {3, 10}, {5, 10}, {5, 20}}
	systems := make([]contracts.System, 0, len(pairs))
	for _, p := range pairs {
		sys, err := backtest.NewMACross(backtest.MACrossConfig{
			Instrument: "sz000001",
			Fast:       p[0],
			Slow:       p[1],
			Commission: 0.0015,
		}, store, nil)
		require.NoError(t, err)
		systems = append(systems, sys)
	}
	return systems
}

func TestSelector_MACrossMatchesDirectEvaluation(t *testing.T) {
	cal := weekdays(125)
	store := marketdata.NewMemoryStore()
	marketdata.DefaultSynthetic().Fill(store, []string{"sz000001"}, cal.Dates())

	for _, mode := range []Mode{ModeMax, ModeMin} {
		t.Run(string(mode), func(t *testing.T) {
			systems := maSystems(t, store)
			sel := newSelector(t, Config{TrainLen: 30, TestLen: 20, Mode: mode, Parallel: true}, cal)
			require.NoError(t, sel.AddCandidates(systems))
			require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))

			views := sel.GetWindows()
			require.Len(t, views, 5)

			for i, v := range views {
				best, bestScore := -1, 0.0
				for j, sys := range systems {
					perf, err := sys.Evaluate(context.Background(), v.Train)
					require.NoError(t, err)
					score := perf[contracts.MetricEndingEquity]
					if best < 0 || mode.better(score, bestScore) {
						best, bestScore = j, score
					}
				}
				assert.Equal(t, best, v.Index, "window %d", i)
				assert.Equal(t, bestScore, v.Score, "window %d", i)
			}
		})
	}
}

func TestSelector_SnapshotRoundTripReproducesWindows(t *testing.T) {
	cal := weekdays(125)
	store := marketdata.NewMemoryStore()
	marketdata.DefaultSynthetic().Fill(store, []string{"sz000001"}, cal.Dates())

	sel := newSelector(t, Config{TrainLen: 30, TestLen: 20}, cal, WithName("ma-demo"))
	require.NoError(t, sel.AddCandidates(maSystems(t, store)))
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	before := stripCandidates(sel.GetWindows())

	_, err := sel.Snapshot()
	require.ErrorIs(t, err, ErrInvalidState, "populated table must be reset first")

	sel.Reset()
	snap, err := sel.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "ma-demo", snap.Name)
	require.Len(t, snap.Candidates, 4)

	path := t.TempDir() + "/ma-demo.yaml"
	require.NoError(t, WriteSnapshotFile(path, snap))
	loaded, err := ReadSnapshotFile(path)
	require.NoError(t, err)

	restored, err := Restore(loaded, backtest.NewFactory(store, nil), cal, nil)
	require.NoError(t, err)
	assert.Equal(t, "ma-demo", restored.Name())
	assert.Equal(t, sel.Config(), restored.Config())
	assert.False(t, restored.Computed())

	require.NoError(t, restored.Calculate(context.Background(), nil, contracts.Query{}))
	assert.Equal(t, before, stripCandidates(restored.GetWindows()))

	// recalculating the original after reset gives the same table
	require.NoError(t, sel.Calculate(context.Background(), nil, contracts.Query{}))
	assert.Equal(t, before, stripCandidates(sel.GetWindows()))
}

func stripCandidates(views []WindowView) []WindowView {
	out := make([]WindowView, len(views))
	for i, v := range views {
		v.Candidate = nil
		out[i] = v
	}
	return out
}

func ExampleSelector_GetSelected() {
	cal := calendar.Weekdays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 60)
	sel, _ := New(Config{TrainLen: 20, TestLen: 10}, cal, nil)
	_ = sel.AddCandidate(newFake("steady", constant(1)))
	_ = sel.Calculate(context.Background(), nil, contracts.Query{})

	for _, v := range sel.GetWindows() {
		fmt.Println(v.Test.Start.Format(contracts.DateLayout), v.Name)
	}
	// Output:
	// 2024-01-29 steady
	// 2024-02-12 steady
	// 2024-02-26 steady
	// 2024-03-11 steady
}
