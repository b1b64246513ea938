package selection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// Selector picks one candidate per walk-forward window.
// The table is empty until a successful Calculate produces at least one
// window; Reset or RemoveAll empty it again.
// ⭐ SSOT: 최적 후보 선택 상태는 여기서만
type Selector struct {
	mu sync.RWMutex

	name     string
	cfg      Config
	pool     []*Candidate
	table    *table // nil when empty
	busy     bool   // Calculate in flight
	gen      uint64 // bumped by Reset and RemoveAll
	calendar contracts.TradingCalendar

	logger   *logger.Logger
	recorder Recorder
}

// Option configures a Selector
type Option func(*Selector)

// WithRecorder sets the measurement sink
func WithRecorder(rec Recorder) Option {
	return func(s *Selector) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithName sets the selector name used by snapshots
func WithName(name string) Option {
	return func(s *Selector) { s.name = name }
}

// New creates an empty selector over the given calendar
func New(cfg Config, cal contracts.TradingCalendar, log *logger.Logger, opts ...Option) (*Selector, error) {
	if cal == nil {
		return nil, fmt.Errorf("%w: calendar is required", ErrInvalidArgument)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Selector{
		name:     "default",
		cfg:      cfg,
		calendar: cal,
		logger:   log,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the selector name
func (s *Selector) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Config returns the current configuration
func (s *Selector) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig validates and replaces the configuration; the table is kept
func (s *Selector) SetConfig(cfg Config) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// AddCandidate appends a system to the pool
func (s *Selector) AddCandidate(sys contracts.System) error {
	if isNil(sys) {
		return fmt.Errorf("%w: nil candidate", ErrInvalidArgument)
	}
	s.mu.Lock()
	s.pool = append(s.pool, &Candidate{Index: len(s.pool), System: sys})
	s.mu.Unlock()
	return nil
}

// AddCandidates appends systems in order and stops at the first nil.
// Systems before the nil stay in the pool.
func (s *Selector) AddCandidates(list []contracts.System) error {
	for i, sys := range list {
		if err := s.AddCandidate(sys); err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
	}
	return nil
}

// RemoveAll empties the pool and clears the table
func (s *Selector) RemoveAll() {
	s.mu.Lock()
	s.pool = nil
	s.table = nil
	s.gen++
	s.mu.Unlock()
}

// Reset clears the table; the pool is kept
func (s *Selector) Reset() {
	s.mu.Lock()
	s.table = nil
	s.gen++
	s.mu.Unlock()
}

// Candidates returns a copy of the pool
func (s *Selector) Candidates() []*Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Candidate, len(s.pool))
	copy(out, s.pool)
	return out
}

// Computed reports whether the table holds at least one window
func (s *Selector) Computed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

// Calculate ranks the pool plus extra over every window of the query.
// extra joins the evaluation set for this call only; nil entries are skipped.
// An empty set, an incomplete candidate, or an empty calendar leave the table
// empty and return nil. Calculating over a populated table, or while another
// Calculate runs, returns ErrInvalidState.
func (s *Selector) Calculate(ctx context.Context, extra []contracts.System, q contracts.Query) error {
	started := time.Now()
	outcome := OutcomeOK
	defer func() {
		s.recorder.ObserveCalculate(outcome, time.Since(started))
	}()

	s.mu.Lock()
	if s.table != nil {
		s.mu.Unlock()
		outcome = OutcomeError
		return fmt.Errorf("%w: table already computed, reset first", ErrInvalidState)
	}
	if s.busy {
		s.mu.Unlock()
		outcome = OutcomeError
		return fmt.Errorf("%w: calculate already in progress", ErrInvalidState)
	}
	s.busy = true
	cfg := s.cfg
	gen := s.gen
	set := make([]*Candidate, len(s.pool), len(s.pool)+len(extra))
	copy(set, s.pool)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	for _, sys := range extra {
		if isNil(sys) {
			continue
		}
		set = append(set, &Candidate{Index: len(set), System: sys})
	}

	log := s.logger.WithFields(map[string]interface{}{
		"selector": s.name,
		"query":    q.Key(),
	})

	if len(set) == 0 {
		outcome = OutcomeEmpty
		log.Debug("No candidates to select from")
		return nil
	}
	for _, c := range set {
		if c.System.Instrument() == "" {
			outcome = OutcomeNotReady
			log.WithField("candidate", c.System.Name()).Warn("Candidate has no instrument, skipping calculate")
			return nil
		}
	}

	dates, err := s.calendar.Resolve(ctx, q)
	if err != nil {
		outcome = outcomeFor(err)
		return fmt.Errorf("resolve calendar: %w", err)
	}

	windows := PlanWindows(dates, cfg.TrainLen, cfg.TestLen)
	if len(windows) == 0 {
		outcome = OutcomeEmpty
		log.WithFields(map[string]interface{}{
			"sessions":  len(dates),
			"train_len": cfg.TrainLen,
		}).Debug("Calendar too short for a window")
		return nil
	}

	ranker := NewRanker(cfg, s.logger, s.recorder)
	kept := make([]Window, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			outcome = OutcomeCanceled
			return err
		}

		ranking, err := ranker.Rank(ctx, set, w.Train)
		if err != nil {
			outcome = outcomeFor(err)
			return fmt.Errorf("rank window %d %s: %w", i, w.Train, err)
		}
		if !ranking.Found {
			log.WithFields(map[string]interface{}{
				"window": i,
				"train":  w.Train.String(),
			}).Warn("All candidates failed, window omitted")
			continue
		}

		w.Winner = ranking.Winner
		w.Score = ranking.Score
		kept = append(kept, w)

		log.WithFields(map[string]interface{}{
			"window":    i,
			"test":      w.Test.String(),
			"candidate": set[w.Winner].System.Name(),
			"score":     w.Score,
			"failures":  len(ranking.Failures),
		}).Debug("Window winner selected")
	}
	s.recorder.ObserveWindows(len(windows), len(kept))

	if len(kept) == 0 {
		outcome = OutcomeEmpty
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		outcome = OutcomeCanceled
		return fmt.Errorf("%w: selector was reset during calculate", ErrInvalidState)
	}
	s.table = &table{windows: kept, candidates: set}

	log.WithFields(map[string]interface{}{
		"windows":    len(kept),
		"candidates": len(set),
		"duration":   time.Since(started).String(),
	}).Info("Selection calculated")
	return nil
}

// GetSelected returns the winner whose test window contains at,
// or an empty slice when no window covers it
func (s *Selector) GetSelected(at time.Time) []SystemWeight {
	tbl := s.current()
	if tbl == nil {
		return []SystemWeight{}
	}
	w, ok := tbl.find(at)
	if !ok {
		return []SystemWeight{}
	}
	return []SystemWeight{{Candidate: tbl.candidates[w.Winner], Weight: 1}}
}

// GetWindows returns every computed window in order
func (s *Selector) GetWindows() []WindowView {
	tbl := s.current()
	if tbl == nil {
		return []WindowView{}
	}
	views := make([]WindowView, len(tbl.windows))
	for i, w := range tbl.windows {
		views[i] = tbl.view(w)
	}
	return views
}

// SelectedBetween returns windows whose test range overlaps r
func (s *Selector) SelectedBetween(r contracts.DateRange) []WindowView {
	tbl := s.current()
	if tbl == nil {
		return []WindowView{}
	}
	return tbl.between(r)
}

// current returns the immutable table, nil when empty
func (s *Selector) current() *table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func outcomeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return OutcomeError
}

// isNil also catches typed nil pointers stored in the interface
func isNil(sys contracts.System) bool {
	if sys == nil {
		return true
	}
	v := reflect.ValueOf(sys)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
