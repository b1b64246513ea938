package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// MemoryStore is an in-memory PriceSource, safe for concurrent readers
type MemoryStore struct {
	mu     sync.RWMutex
	prices map[string][]*contracts.Price
}

// Compile-time interface check.
var _ contracts.PriceSource = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prices: make(map[string][]*contracts.Price)}
}

// Put replaces the bars of a code; input is copied and sorted by date
func (s *MemoryStore) Put(code string, prices []*contracts.Price) {
	cp := make([]*contracts.Price, 0, len(prices))
	for _, p := range prices {
		bar := *p
		bar.Code = code
		cp = append(cp, &bar)
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })

	s.mu.Lock()
	s.prices[code] = cp
	s.mu.Unlock()
}

// GetByCodeAndDateRange returns copies of bars with from <= date < to
func (s *MemoryStore) GetByCodeAndDateRange(ctx context.Context, code string, from, to time.Time) ([]*contracts.Price, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	bars := s.prices[code]
	s.mu.RUnlock()

	lo := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(from) })
	hi := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(to) })
	if lo >= hi {
		return nil, nil
	}

	out := make([]*contracts.Price, 0, hi-lo)
	for _, p := range bars[lo:hi] {
		bar := *p
		out = append(out, &bar)
	}
	return out, nil
}

// Codes returns stored instrument codes in sorted order
func (s *MemoryStore) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.prices))
	for code := range s.prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
