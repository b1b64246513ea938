package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/selection"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// SelectionReader is the read side of a selector
type SelectionReader interface {
	Name() string
	Config() selection.Config
	Computed() bool
	Candidates() []*selection.Candidate
	GetWindows() []selection.WindowView
	GetSelected(at time.Time) []selection.SystemWeight
	SelectedBetween(r contracts.DateRange) []selection.WindowView
}

// SelectionHandler handles selection API endpoints
// ⭐ SSOT: 선택 결과 API 핸들러는 이 구조체에서만
type SelectionHandler struct {
	selector SelectionReader
	logger   *logger.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selector SelectionReader, log *logger.Logger) *SelectionHandler {
	return &SelectionHandler{
		selector: selector,
		logger:   log,
	}
}

// WindowsResponse lists computed windows
type WindowsResponse struct {
	Selector string                 `json:"selector"`
	Computed bool                   `json:"computed"`
	Count    int                    `json:"count"`
	Windows  []selection.WindowView `json:"windows"`
}

// SelectedItem is one selected system
type SelectedItem struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Instrument string  `json:"instrument"`
	Weight     float64 `json:"weight"`
}

// SelectedResponse is the selection at one date
type SelectedResponse struct {
	Date     string         `json:"date"`
	Selected []SelectedItem `json:"selected"`
}

// CandidateItem describes one pooled candidate
type CandidateItem struct {
	Index int                  `json:"index"`
	Spec  contracts.SystemSpec `json:"spec"`
}

// GetWindows returns every computed window
// GET /api/windows
func (h *SelectionHandler) GetWindows(w http.ResponseWriter, r *http.Request) {
	windows := h.selector.GetWindows()
	respondJSON(w, http.StatusOK, WindowsResponse{
		Selector: h.selector.Name(),
		Computed: h.selector.Computed(),
		Count:    len(windows),
		Windows:  windows,
	})
}

// GetSelected returns the system selected at a date
// GET /api/selected?date=YYYY-MM-DD
func (h *SelectionHandler) GetSelected(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r, "date")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid or missing 'date' (expected YYYY-MM-DD)")
		return
	}

	weights := h.selector.GetSelected(date)
	items := make([]SelectedItem, 0, len(weights))
	for _, sw := range weights {
		items = append(items, SelectedItem{
			Index:      sw.Candidate.Index,
			Name:       sw.Candidate.System.Name(),
			Instrument: sw.Candidate.System.Instrument(),
			Weight:     sw.Weight,
		})
	}

	respondJSON(w, http.StatusOK, SelectedResponse{
		Date:     date.Format(contracts.DateLayout),
		Selected: items,
	})
}

// GetSelectedRange returns windows overlapping [from, to)
// GET /api/selected/range?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *SelectionHandler) GetSelectedRange(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDate(r, "from")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid or missing 'from' (expected YYYY-MM-DD)")
		return
	}
	to, ok := parseDate(r, "to")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid or missing 'to' (expected YYYY-MM-DD)")
		return
	}
	if !from.Before(to) {
		respondError(w, http.StatusBadRequest, "'from' must be before 'to'")
		return
	}

	windows := h.selector.SelectedBetween(contracts.DateRange{Start: from, End: to})
	respondJSON(w, http.StatusOK, WindowsResponse{
		Selector: h.selector.Name(),
		Computed: h.selector.Computed(),
		Count:    len(windows),
		Windows:  windows,
	})
}

// GetCandidates returns the candidate pool
// GET /api/candidates
func (h *SelectionHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	pool := h.selector.Candidates()
	items := make([]CandidateItem, len(pool))
	for i, c := range pool {
		items[i] = CandidateItem{Index: c.Index, Spec: c.System.Spec()}
	}
	respondJSON(w, http.StatusOK, items)
}

// GetConfig returns the selector configuration
// GET /api/config
func (h *SelectionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.selector.Config())
}
