package marketdata

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// Synthetic generates deterministic daily bars, used by the CLI demo mode
// and by tests. The path is a drifting sine with a second, faster cycle so
// short and long moving averages cross repeatedly.
type Synthetic struct {
	Base   float64
	Drift  float64 // per-session relative drift
	Amp    float64 // relative amplitude of the slow cycle
	Period float64 // sessions per slow cycle
}

// DefaultSynthetic returns the generator used by the demo commands
func DefaultSynthetic() Synthetic {
	return Synthetic{
		Base:   100,
		Drift:  0.0005,
		Amp:    0.08,
		Period: 37,
	}
}

// Generate builds one bar per date for code.
// The phase is derived from the code so different instruments diverge.
func (g Synthetic) Generate(code string, dates []time.Time) []*contracts.Price {
	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	phase := float64(h.Sum32()%360) * math.Pi / 180

	prices := make([]*contracts.Price, 0, len(dates))
	prev := g.Base
	for i, d := range dates {
		x := float64(i)
		slow := g.Amp * math.Sin(2*math.Pi*x/g.Period+phase)
		fast := g.Amp / 3 * math.Sin(2*math.Pi*x/(g.Period/4)+2*phase)
		closePrice := g.Base * (1 + g.Drift*x) * (1 + slow + fast)

		high := math.Max(prev, closePrice) * 1.002
		low := math.Min(prev, closePrice) * 0.998
		prices = append(prices, &contracts.Price{
			Code:   code,
			Date:   d,
			Open:   prev,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(100_000 + (i*7919)%50_000),
		})
		prev = closePrice
	}
	return prices
}

// Fill generates bars for every code into the store
func (g Synthetic) Fill(store *MemoryStore, codes []string, dates []time.Time) {
	for _, code := range codes {
		store.Put(code, g.Generate(code, dates))
	}
}
