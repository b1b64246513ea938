package selection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optimal-selector/internal/contracts"
)

func pool(systems ...contracts.System) []*Candidate {
	out := make([]*Candidate, len(systems))
	for i, s := range systems {
		out[i] = &Candidate{Index: i, System: s}
	}
	return out
}

func rankerConfig(mode Mode, parallel bool) Config {
	cfg := Config{Mode: mode, Parallel: parallel, Workers: 2}
	_ = cfg.Normalize()
	return cfg
}

var anyRange = contracts.DateRange{Start: epoch, End: epoch.AddDate(0, 1, 0)}

func TestRanker_ModeAndTies(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		scores []float64
		want   int
	}{
		{"max picks greatest", ModeMax, []float64{1, 7, 3}, 1},
		{"min picks least", ModeMin, []float64{4, 7, 3}, 2},
		{"max tie goes to lowest index", ModeMax, []float64{2, 9, 9, 9}, 1},
		{"min tie goes to lowest index", ModeMin, []float64{5, 1, 3, 1}, 1},
		{"negative scores", ModeMax, []float64{-3, -1, -2}, 1},
	}

	for _, tt := range tests {
		for _, parallel := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/parallel=%v", tt.name, parallel), func(t *testing.T) {
				systems := make([]contracts.System, len(tt.scores))
				for i, s := range tt.scores {
					systems[i] = newFake(fmt.Sprintf("c%d", i), constant(s))
				}

				ranking, err := NewRanker(rankerConfig(tt.mode, parallel), nil, nil).Rank(context.Background(), pool(systems...), anyRange)
				require.NoError(t, err)
				require.True(t, ranking.Found)
				assert.Equal(t, tt.want, ranking.Winner)
				assert.Equal(t, tt.scores[tt.want], ranking.Score)
				assert.Len(t, ranking.Scores, len(tt.scores))
				assert.Empty(t, ranking.Failures)
			})
		}
	}
}

func TestRanker_ModeSymmetry(t *testing.T) {
	scores := []float64{3.5, -2, 8, 8, 0.25, -2}

	pos := make([]contracts.System, len(scores))
	neg := make([]contracts.System, len(scores))
	for i, s := range scores {
		pos[i] = newFake(fmt.Sprintf("p%d", i), constant(s))
		neg[i] = newFake(fmt.Sprintf("n%d", i), constant(-s))
	}

	maxRank, err := NewRanker(rankerConfig(ModeMax, false), nil, nil).Rank(context.Background(), pool(pos...), anyRange)
	require.NoError(t, err)
	minRank, err := NewRanker(rankerConfig(ModeMin, false), nil, nil).Rank(context.Background(), pool(neg...), anyRange)
	require.NoError(t, err)

	assert.Equal(t, maxRank.Winner, minRank.Winner)
	assert.Equal(t, 2, maxRank.Winner)
}

func TestRanker_FailuresAreExcluded(t *testing.T) {
	failing := func(contracts.DateRange) (float64, error) {
		return 0, fmt.Errorf("bars: %w", contracts.ErrEvaluation)
	}
	noData := func(contracts.DateRange) (float64, error) {
		return 0, contracts.ErrNoData
	}
	nan := constant(math.NaN())

	rec := newCountingRecorder()
	ranking, err := NewRanker(rankerConfig(ModeMax, true), nil, rec).Rank(context.Background(), pool(
		newFake("fails", failing),
		newFake("nan", nan),
		newFake("ok", constant(5)),
		newFake("nodata", noData),
	), anyRange)
	require.NoError(t, err)

	require.True(t, ranking.Found)
	assert.Equal(t, 2, ranking.Winner)
	require.Len(t, ranking.Failures, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{ranking.Failures[0].Index, ranking.Failures[1].Index, ranking.Failures[2].Index})
	assert.ErrorIs(t, ranking.Failures[1].Err, contracts.ErrEvaluation)
	assert.Equal(t, 3, rec.evaluations[OutcomeFailed])
	assert.Equal(t, 1, rec.evaluations[OutcomeOK])
}

func TestRanker_AllFail(t *testing.T) {
	ranking, err := NewRanker(rankerConfig(ModeMax, false), nil, nil).Rank(context.Background(), pool(
		newFake("a", constant(math.NaN())),
		newFake("b", func(contracts.DateRange) (float64, error) { return 0, contracts.ErrNoData }),
	), anyRange)
	require.NoError(t, err)
	assert.False(t, ranking.Found)
	assert.Equal(t, -1, ranking.Winner)
}

func TestRanker_FaultPropagates(t *testing.T) {
	boom := errors.New("database unavailable")

	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			_, err := NewRanker(rankerConfig(ModeMax, parallel), nil, nil).Rank(context.Background(), pool(
				newFake("ok", constant(1)),
				newFake("broken", func(contracts.DateRange) (float64, error) { return 0, boom }),
			), anyRange)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), "broken")
		})
	}
}

func TestRanker_EvaluatesClonesOnly(t *testing.T) {
	a := newFake("a", constant(1))
	b := newFake("b", constant(2))

	_, err := NewRanker(rankerConfig(ModeMax, true), nil, nil).Rank(context.Background(), pool(a, b), anyRange)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.clones.Load())
	assert.Equal(t, int64(1), b.clones.Load())
	assert.Zero(t, a.protoEvals.Load())
	assert.Zero(t, b.protoEvals.Load())
}

func TestRanker_CustomMetric(t *testing.T) {
	cfg := rankerConfig(ModeMax, false)
	cfg.Metric = contracts.MetricTotalReturn

	// fake systems only report ending_equity
	ranking, err := NewRanker(cfg, nil, nil).Rank(context.Background(), pool(newFake("a", constant(1))), anyRange)
	require.NoError(t, err)
	assert.False(t, ranking.Found)
	require.Len(t, ranking.Failures, 1)
	assert.Contains(t, ranking.Failures[0].Err.Error(), "total_return")
}
