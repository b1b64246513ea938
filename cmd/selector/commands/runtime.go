package commands

import (
	"context"
	"fmt"

	"github.com/wonny/optimal-selector/internal/backtest"
	"github.com/wonny/optimal-selector/internal/calendar"
	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/marketdata"
	"github.com/wonny/optimal-selector/internal/observability"
	"github.com/wonny/optimal-selector/internal/selection"
	"github.com/wonny/optimal-selector/internal/strategyconfig"
	"github.com/wonny/optimal-selector/pkg/config"
	"github.com/wonny/optimal-selector/pkg/database"
	"github.com/wonny/optimal-selector/pkg/logger"
	"github.com/wonny/optimal-selector/pkg/redis"
)

// runtime bundles everything a command needs to build and run a selector
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	yaml     []byte

	db      *database.DB // nil for synthetic data
	redis   *redis.Client
	cal     contracts.TradingCalendar
	prices  contracts.PriceSource
	factory contracts.SystemFactory
	metrics *observability.Metrics
}

// newRuntime loads env config and the strategy file, then wires the data
// sources. forceSynthetic overrides data.source in the strategy file.
func newRuntime(ctx context.Context, path string, forceSynthetic bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	strategy, raw, err := strategyconfig.LoadWithDefaults(path, strategyconfig.EnvDefaults(cfg.Selector))
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
		yaml:     raw,
	}
	if cfg.MetricsEnabled {
		rt.metrics = observability.NewMetrics("selector")
	}

	if forceSynthetic || strategy.Data.Source == "synthetic" {
		if err := rt.wireSynthetic(); err != nil {
			return nil, err
		}
	} else {
		if err := rt.wirePostgres(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.factory = backtest.NewFactory(rt.prices, log)
	return rt, nil
}

func (rt *runtime) wireSynthetic() error {
	from, err := rt.strategy.FromDate()
	if err != nil {
		return fmt.Errorf("data.from: %w", err)
	}

	cal := calendar.Weekdays(from, rt.strategy.Data.Sessions)
	store := marketdata.NewMemoryStore()
	marketdata.DefaultSynthetic().Fill(store, rt.strategy.Instruments(), cal.Dates())

	rt.cal = cal
	rt.prices = store

	rt.log.WithFields(map[string]interface{}{
		"sessions":    cal.Len(),
		"instruments": len(rt.strategy.Instruments()),
	}).Info("Using synthetic market data")
	return nil
}

func (rt *runtime) wirePostgres(ctx context.Context) error {
	if err := rt.cfg.RequireDatabase(); err != nil {
		return err
	}

	db, err := database.New(ctx, rt.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	rt.db = db

	schema := append(append([]string{}, marketdata.Schema...), selection.Schema...)
	if err := db.EnsureSchema(ctx, schema...); err != nil {
		return err
	}

	rc, err := redis.New(rt.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	rt.redis = rc

	var cal contracts.TradingCalendar = calendar.NewRepository(db.Pool, rt.strategy.Data.CalendarCode)
	if rc.Enabled() {
		cal = calendar.NewCached(cal, redis.NewCache(rc, "selector"), rt.strategy.Data.CalendarCode, rt.cfg.CalendarCacheTTL, rt.log)
	}

	rt.cal = cal
	rt.prices = marketdata.NewPriceRepository(db.Pool)

	rt.log.Info("Using PostgreSQL market data")
	return nil
}

// newSelector builds a selector from the strategy file and pools its candidates
func (rt *runtime) newSelector() (*selection.Selector, error) {
	opts := []selection.Option{selection.WithName(rt.strategy.Selector.Name)}
	if rt.metrics != nil {
		opts = append(opts, selection.WithRecorder(rt.metrics))
	}

	sel, err := selection.New(rt.strategy.SelectorConfig(), rt.cal, rt.log, opts...)
	if err != nil {
		return nil, err
	}

	for i, spec := range rt.strategy.Specs() {
		sys, err := rt.factory(spec)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		if err := sel.AddCandidate(sys); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// restoreSelector rebuilds a selector from a snapshot against this runtime's data
func (rt *runtime) restoreSelector(snap *selection.Snapshot) (*selection.Selector, error) {
	var opts []selection.Option
	if rt.metrics != nil {
		opts = append(opts, selection.WithRecorder(rt.metrics))
	}
	return selection.Restore(snap, rt.factory, rt.cal, rt.log, opts...)
}

// calculate runs the walk-forward pass over the strategy query
func (rt *runtime) calculate(ctx context.Context, sel *selection.Selector) error {
	q, err := rt.strategy.CalendarQuery()
	if err != nil {
		return err
	}
	return sel.Calculate(ctx, nil, q)
}

// Close releases database and cache connections
func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
