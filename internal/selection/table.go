package selection

import (
	"sort"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// Candidate is a pooled system with its stable insertion index
type Candidate struct {
	Index  int
	System contracts.System
}

// Name returns the system name
func (c *Candidate) Name() string { return c.System.Name() }

// SystemWeight is one selected system and its weight
type SystemWeight struct {
	Candidate *Candidate
	Weight    float64
}

// WindowView is a window with its winner resolved
type WindowView struct {
	Train      contracts.DateRange `json:"train"`
	Test       contracts.DateRange `json:"test"`
	Index      int                 `json:"index"`
	Name       string              `json:"name"`
	Instrument string              `json:"instrument"`
	Score      float64             `json:"score"`
	Candidate  *Candidate          `json:"-"`
}

// table is immutable once built; Calculate swaps in a fresh one
type table struct {
	windows    []Window
	candidates []*Candidate // evaluation set of the call
}

func (t *table) view(w Window) WindowView {
	c := t.candidates[w.Winner]
	return WindowView{
		Train:      w.Train,
		Test:       w.Test,
		Index:      c.Index,
		Name:       c.System.Name(),
		Instrument: c.System.Instrument(),
		Score:      w.Score,
		Candidate:  c,
	}
}

// find returns the window whose test range contains at
func (t *table) find(at time.Time) (Window, bool) {
	i := sort.Search(len(t.windows), func(i int) bool {
		return at.Before(t.windows[i].Test.End)
	})
	if i == len(t.windows) || !t.windows[i].Test.Contains(at) {
		return Window{}, false
	}
	return t.windows[i], true
}

// between returns windows whose test range overlaps r, in order
func (t *table) between(r contracts.DateRange) []WindowView {
	views := make([]WindowView, 0)
	if r.Empty() {
		return views
	}
	i := sort.Search(len(t.windows), func(i int) bool {
		return r.Start.Before(t.windows[i].Test.End)
	})
	for ; i < len(t.windows) && t.windows[i].Test.Start.Before(r.End); i++ {
		views = append(views, t.view(t.windows[i]))
	}
	return views
}
