package contracts

import (
	"context"
	"errors"
	"math"
	"time"
)

// Evaluation errors. Systems wrap these for failures that are local to one
// candidate and one range; anything else is treated as a fault.
var (
	// ErrEvaluation marks a failed candidate run
	ErrEvaluation = errors.New("evaluation failed")

	// ErrNoData is returned when the instrument has no prices in range
	ErrNoData = errors.New("no price data")
)

// Well-known performance keys
const (
	MetricEndingEquity = "ending_equity"
	MetricTotalReturn  = "total_return"
	MetricMaxDrawdown  = "max_drawdown"
	MetricTrades       = "trades"
	MetricSharpe       = "sharpe"
	MetricVaR95        = "var_95"  // historical, loss as a positive fraction
	MetricCVaR95       = "cvar_95" // mean loss beyond var_95
)

// Performance holds named statistics of one run
type Performance map[string]float64

// Get returns the named statistic; missing or NaN values report false
func (p Performance) Get(name string) (float64, bool) {
	v, ok := p[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// SystemSpec is the persistable description of a trading system prototype
type SystemSpec struct {
	Kind       string             `json:"kind" yaml:"kind"`
	Name       string             `json:"name" yaml:"name"`
	Instrument string             `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Params     map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// System is a candidate trading system prototype
// ⭐ SSOT: 후보 시스템 인터페이스
type System interface {
	Name() string

	// Instrument returns the target instrument code, "" when unset
	Instrument() string

	// Clone returns an independent copy that shares no mutable state
	Clone() System

	// Evaluate runs a fresh backtest restricted to r
	Evaluate(ctx context.Context, r DateRange) (Performance, error)

	Spec() SystemSpec
}

// SystemFactory rebuilds a System from its persisted description
type SystemFactory func(spec SystemSpec) (System, error)

// Price is one daily bar
type Price struct {
	Code   string    `json:"code"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSource provides daily bars for an instrument
type PriceSource interface {
	// GetByCodeAndDateRange returns bars with from <= date < to, ascending
	GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]*Price, error)
}
