package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// Repository resolves trading dates from stored daily prices
// ⭐ SSOT: DB 거래일 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
	code string
}

// Compile-time interface check.
var _ contracts.TradingCalendar = (*Repository)(nil)

// NewRepository creates a calendar over data.daily_prices.
// If code is set, only that instrument's sessions count (index calendar).
func NewRepository(pool *pgxpool.Pool, code string) *Repository {
	return &Repository{pool: pool, code: code}
}

// Resolve returns distinct trade dates matching q
func (r *Repository) Resolve(ctx context.Context, q contracts.Query) ([]time.Time, error) {
	query, args := r.buildQuery(q)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trading calendar: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trade date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade dates: %w", err)
	}

	// Last N is selected descending in SQL
	if q.Last > 0 {
		for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
			dates[i], dates[j] = dates[j], dates[i]
		}
	}

	return dates, nil
}

func (r *Repository) buildQuery(q contracts.Query) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	if r.code != "" {
		args = append(args, r.code)
		where = append(where, fmt.Sprintf("stock_code = $%d", len(args)))
	}
	if !q.Start.IsZero() {
		args = append(args, q.Start)
		where = append(where, fmt.Sprintf("trade_date >= $%d", len(args)))
	}
	if !q.End.IsZero() {
		args = append(args, q.End)
		where = append(where, fmt.Sprintf("trade_date < $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT trade_date FROM data.daily_prices")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if q.Last > 0 {
		args = append(args, q.Last)
		sb.WriteString(fmt.Sprintf(" ORDER BY trade_date DESC LIMIT $%d", len(args)))
	} else {
		sb.WriteString(" ORDER BY trade_date ASC")
	}

	return sb.String(), args
}
