// Package risk holds pure return-series statistics used to score backtests.
package risk

import (
	"math"
	"sort"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// VaRResult VaR/CVaR 결과 (손실을 양수로 표현)
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// Returns converts an equity curve into simple per-step returns.
// Steps starting from non-positive equity are skipped.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] <= 0 {
			continue
		}
		out = append(out, equity[i]/equity[i-1]-1)
	}
	return out
}

// HistoricalVaR 과거 수익률 기반 VaR 계산 (Historical Simulation)
// confidence: 신뢰수준 (예: 0.95)
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	res := VaRResult{Confidence: confidence}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return res
	}

	// 오름차순: 손실이 앞에
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if sorted[idx] < 0 {
		res.VaR = -sorted[idx]
	}

	// CVaR (Expected Shortfall): tail 평균 손실
	if tail := Mean(sorted[:idx+1]); tail < 0 {
		res.CVaR = -tail
	}
	return res
}

// Sharpe returns the annualized Sharpe ratio with a zero risk-free rate.
// A flat series scores 0.
func Sharpe(returns []float64) float64 {
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 표본 표준편차 계산
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
