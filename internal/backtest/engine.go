package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/risk"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// KindMACross identifies the moving-average crossover system
const KindMACross = "ma_cross"

// DefaultCapital is the starting cash of every run
const DefaultCapital = 100000.0

// MACross is a long-only moving-average crossover system.
// It buys the whole position at the close when the fast SMA crosses above the
// slow SMA and sells when it crosses back below.
// ⭐ SSOT: 후보 시스템 백테스트는 여기서만
type MACross struct {
	name       string
	instrument string
	fast       int
	slow       int
	capital    float64
	commission float64

	prices contracts.PriceSource
	logger *logger.Logger
}

// Compile-time interface check.
var _ contracts.System = (*MACross)(nil)

// MACrossConfig holds the system parameters
type MACrossConfig struct {
	Name       string
	Instrument string
	Fast       int
	Slow       int
	Capital    float64 // 0 means DefaultCapital
	Commission float64 // rate, e.g. 0.0015 for 0.15%
}

// NewMACross creates a crossover system reading bars from prices
func NewMACross(cfg MACrossConfig, prices contracts.PriceSource, log *logger.Logger) (*MACross, error) {
	if cfg.Fast < 1 || cfg.Slow <= cfg.Fast {
		return nil, fmt.Errorf("%w: need 1 <= fast < slow, got fast=%d slow=%d", ErrInvalidParams, cfg.Fast, cfg.Slow)
	}
	if cfg.Commission < 0 || cfg.Commission >= 1 {
		return nil, fmt.Errorf("%w: commission %v out of [0, 1)", ErrInvalidParams, cfg.Commission)
	}
	if cfg.Capital < 0 {
		return nil, fmt.Errorf("%w: capital %v", ErrInvalidParams, cfg.Capital)
	}
	if prices == nil {
		return nil, fmt.Errorf("%w: price source is required", ErrInvalidParams)
	}
	if cfg.Capital == 0 {
		cfg.Capital = DefaultCapital
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("%s_%d_%d", KindMACross, cfg.Fast, cfg.Slow)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &MACross{
		name:       cfg.Name,
		instrument: cfg.Instrument,
		fast:       cfg.Fast,
		slow:       cfg.Slow,
		capital:    cfg.Capital,
		commission: cfg.Commission,
		prices:     prices,
		logger:     log,
	}, nil
}

func (m *MACross) Name() string       { return m.name }
func (m *MACross) Instrument() string { return m.instrument }

// Clone returns a copy; the price source is shared and read-only
func (m *MACross) Clone() contracts.System {
	c := *m
	return &c
}

// Spec returns the persistable description
func (m *MACross) Spec() contracts.SystemSpec {
	return contracts.SystemSpec{
		Kind:       KindMACross,
		Name:       m.name,
		Instrument: m.instrument,
		Params: map[string]float64{
			"fast":       float64(m.fast),
			"slow":       float64(m.slow),
			"capital":    m.capital,
			"commission": m.commission,
		},
	}
}

// Evaluate runs a fresh backtest over the bars in r
func (m *MACross) Evaluate(ctx context.Context, r contracts.DateRange) (contracts.Performance, error) {
	bars, err := m.prices.GetByCodeAndDateRange(ctx, m.instrument, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("load prices %s: %w", m.instrument, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w: %w", m.instrument, r, contracts.ErrEvaluation, contracts.ErrNoData)
	}
	if len(bars) <= m.slow {
		return nil, fmt.Errorf("%s %s: %w: %d bars, need %d", m.instrument, r, contracts.ErrEvaluation, len(bars), m.slow+1)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	fastMA := SMA(closes, m.fast)
	slowMA := SMA(closes, m.slow)

	ledger := NewLedger(m.capital, m.commission)
	peak := decimal.NewFromFloat(m.capital)
	maxDrawdown := decimal.Zero
	curve := make([]float64, len(bars))

	for i := range bars {
		if i > 0 && valid(fastMA[i-1], slowMA[i-1], fastMA[i], slowMA[i]) {
			prev := fastMA[i-1] - slowMA[i-1]
			cur := fastMA[i] - slowMA[i]
			switch {
			case prev <= 0 && cur > 0 && !ledger.Long():
				ledger.BuyAll(bars[i].Date, closes[i])
			case prev >= 0 && cur < 0 && ledger.Long():
				ledger.SellAll(bars[i].Date, closes[i])
			}
		}

		equity := ledger.Equity(closes[i])
		curve[i] = equity.InexactFloat64()
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if peak.IsPositive() {
			if dd := peak.Sub(equity).Div(peak); dd.GreaterThan(maxDrawdown) {
				maxDrawdown = dd
			}
		}
	}

	ending := ledger.Equity(closes[len(closes)-1])
	initial := decimal.NewFromFloat(m.capital)
	stats := ledger.GetStats()
	returns := risk.Returns(curve)
	tail := risk.HistoricalVaR(returns, 0.95)

	perf := contracts.Performance{
		contracts.MetricEndingEquity: ending.InexactFloat64(),
		contracts.MetricTotalReturn:  ending.Sub(initial).Div(initial).InexactFloat64(),
		contracts.MetricMaxDrawdown:  maxDrawdown.InexactFloat64(),
		contracts.MetricTrades:       float64(stats.TotalTrades),
		contracts.MetricSharpe:       risk.Sharpe(returns),
		contracts.MetricVaR95:        tail.VaR,
		contracts.MetricCVaR95:       tail.CVaR,
	}

	m.logger.WithFields(map[string]interface{}{
		"system":        m.name,
		"instrument":    m.instrument,
		"range":         r.String(),
		"bars":          len(bars),
		"ending_equity": perf[contracts.MetricEndingEquity],
		"trades":        stats.TotalTrades,
	}).Debug("Backtest completed")

	return perf, nil
}

func valid(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return false
		}
	}
	return true
}
