package selection

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// Ranker evaluates candidates over a training range and picks the best
// ⭐ SSOT: 후보 랭킹 로직은 여기서만
type Ranker struct {
	mode     Mode
	metric   string
	parallel bool
	workers  int
	logger   *logger.Logger
	recorder Recorder
}

// Ranking is the outcome of one Rank call
type Ranking struct {
	Found  bool
	Winner int // index into the candidate slice
	Score  float64

	Scores   []Score
	Failures []Failure
}

// Score is a successful evaluation
type Score struct {
	Index int
	Name  string
	Value float64
}

// Failure is an evaluation excluded from ranking
type Failure struct {
	Index int
	Name  string
	Err   error
}

// slot is written by exactly one evaluation
type slot struct {
	value float64
	ok    bool
	err   error
}

// NewRanker creates a new ranker
func NewRanker(cfg Config, log *logger.Logger, rec Recorder) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Ranker{
		mode:     cfg.Mode,
		metric:   cfg.Metric,
		parallel: cfg.Parallel,
		workers:  cfg.Workers,
		logger:   log,
		recorder: rec,
	}
}

// Rank clones and evaluates every candidate over train.
// Evaluation failures are excluded; any other error aborts the ranking.
// Ties go to the lowest index.
func (r *Ranker) Rank(ctx context.Context, candidates []*Candidate, train contracts.DateRange) (Ranking, error) {
	slots := make([]slot, len(candidates))

	if r.parallel && len(candidates) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		if r.workers > 0 {
			g.SetLimit(r.workers)
		}
		for i, c := range candidates {
			g.Go(func() error {
				return r.evaluate(gctx, c, train, &slots[i])
			})
		}
		if err := g.Wait(); err != nil {
			return Ranking{}, err
		}
	} else {
		for i, c := range candidates {
			if err := ctx.Err(); err != nil {
				return Ranking{}, err
			}
			if err := r.evaluate(ctx, c, train, &slots[i]); err != nil {
				return Ranking{}, err
			}
		}
	}

	ranking := Ranking{Winner: -1}
	for i, s := range slots {
		name := candidates[i].System.Name()
		if !s.ok {
			ranking.Failures = append(ranking.Failures, Failure{Index: i, Name: name, Err: s.err})
			r.logger.WithFields(map[string]interface{}{
				"candidate": name,
				"train":     train.String(),
				"error":     s.err.Error(),
			}).Warn("Candidate evaluation failed")
			continue
		}

		ranking.Scores = append(ranking.Scores, Score{Index: i, Name: name, Value: s.value})
		if !ranking.Found || r.mode.better(s.value, ranking.Score) {
			ranking.Found = true
			ranking.Winner = i
			ranking.Score = s.value
		}
	}

	return ranking, nil
}

// evaluate runs one clone and fills its slot
func (r *Ranker) evaluate(ctx context.Context, c *Candidate, train contracts.DateRange, out *slot) error {
	perf, err := c.System.Clone().Evaluate(ctx, train)
	if err != nil {
		if !isEvaluationFailure(err) {
			r.recorder.ObserveEvaluation(OutcomeError)
			return fmt.Errorf("evaluate %s: %w", c.System.Name(), err)
		}
		r.recorder.ObserveEvaluation(OutcomeFailed)
		out.err = err
		return nil
	}

	v, ok := perf.Get(r.metric)
	if !ok {
		r.recorder.ObserveEvaluation(OutcomeFailed)
		out.err = fmt.Errorf("%w: metric %q missing or NaN", contracts.ErrEvaluation, r.metric)
		return nil
	}

	r.recorder.ObserveEvaluation(OutcomeOK)
	out.value = v
	out.ok = true
	return nil
}

func isEvaluationFailure(err error) bool {
	return errors.Is(err, contracts.ErrEvaluation) || errors.Is(err, contracts.ErrNoData)
}
