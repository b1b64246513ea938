package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optimal-selector/internal/selection"
)

func TestMetrics_Recorder(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveCalculate(selection.OutcomeOK, 20*time.Millisecond)
	m.ObserveCalculate(selection.OutcomeOK, 30*time.Millisecond)
	m.ObserveCalculate(selection.OutcomeNotReady, time.Millisecond)
	m.ObserveEvaluation(selection.OutcomeFailed)
	m.ObserveWindows(5, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CalculateTotal.WithLabelValues(selection.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculateTotal.WithLabelValues(selection.OutcomeNotReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(selection.OutcomeFailed)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.WindowsPlanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WindowsOmitted))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// two instances must not panic on duplicate registration
	a := NewMetrics("")
	b := NewMetrics("")

	a.ObserveEvaluation(selection.OutcomeOK)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EvaluationsTotal.WithLabelValues(selection.OutcomeOK)))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveHTTP("/api/windows", http.MethodGet, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_http_requests_total"))
	assert.True(t, strings.Contains(body, `route="/api/windows"`))
}
