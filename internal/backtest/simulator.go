package backtest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger tracks cash and a single long position for one backtest run.
// All amounts are decimal so repeated runs over the same bars agree exactly.
type Ledger struct {
	cash       decimal.Decimal
	shares     decimal.Decimal
	costBasis  decimal.Decimal
	commission decimal.Decimal // rate, e.g. 0.0015

	trades        []Trade
	winningTrades int
	losingTrades  int
}

// Trade represents one executed fill
type Trade struct {
	Date       time.Time
	Direction  string // "buy" or "sell"
	Shares     decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	PnL        decimal.Decimal // sells only
}

// Stats holds ledger statistics
type Stats struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	TotalCommission decimal.Decimal
}

// NewLedger creates a flat ledger with the given capital and commission rate
func NewLedger(capital, commissionRate float64) *Ledger {
	return &Ledger{
		cash:       decimal.NewFromFloat(capital),
		shares:     decimal.Zero,
		costBasis:  decimal.Zero,
		commission: decimal.NewFromFloat(commissionRate),
	}
}

// Long reports whether a position is open
func (l *Ledger) Long() bool {
	return l.shares.IsPositive()
}

// BuyAll spends all cash at price, commission included
func (l *Ledger) BuyAll(date time.Time, price float64) {
	px := decimal.NewFromFloat(price)
	if !px.IsPositive() || !l.cash.IsPositive() {
		return
	}

	// cash = shares*px*(1+c)
	gross := l.cash.Div(decimal.NewFromInt(1).Add(l.commission))
	fee := l.cash.Sub(gross)
	shares := gross.Div(px)

	l.trades = append(l.trades, Trade{
		Date:       date,
		Direction:  "buy",
		Shares:     shares,
		Price:      px,
		Commission: fee,
	})
	l.shares = l.shares.Add(shares)
	l.costBasis = l.costBasis.Add(l.cash)
	l.cash = decimal.Zero
}

// SellAll closes the position at price
func (l *Ledger) SellAll(date time.Time, price float64) {
	if !l.Long() {
		return
	}
	px := decimal.NewFromFloat(price)

	value := l.shares.Mul(px)
	fee := value.Mul(l.commission)
	proceeds := value.Sub(fee)
	pnl := proceeds.Sub(l.costBasis)

	l.trades = append(l.trades, Trade{
		Date:       date,
		Direction:  "sell",
		Shares:     l.shares,
		Price:      px,
		Commission: fee,
		PnL:        pnl,
	})
	switch pnl.Sign() {
	case 1:
		l.winningTrades++
	case -1:
		l.losingTrades++
	}

	l.cash = l.cash.Add(proceeds)
	l.shares = decimal.Zero
	l.costBasis = decimal.Zero
}

// Equity marks the position to market at price
func (l *Ledger) Equity(price float64) decimal.Decimal {
	return l.cash.Add(l.shares.Mul(decimal.NewFromFloat(price)))
}

// Trades returns executed fills in order
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// GetStats returns ledger statistics
func (l *Ledger) GetStats() Stats {
	total := decimal.Zero
	for _, t := range l.trades {
		total = total.Add(t.Commission)
	}
	return Stats{
		TotalTrades:     len(l.trades),
		WinningTrades:   l.winningTrades,
		LosingTrades:    l.losingTrades,
		TotalCommission: total,
	}
}
