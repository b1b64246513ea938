package selection

import "time"

// Calculate outcomes reported to a Recorder
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeNotReady = "not_ready"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
	OutcomeFailed   = "failed"
)

// Recorder receives selector measurements
type Recorder interface {
	ObserveCalculate(outcome string, elapsed time.Duration)
	ObserveEvaluation(outcome string)
	ObserveWindows(planned, kept int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCalculate(string, time.Duration) {}
func (nopRecorder) ObserveEvaluation(string)               {}
func (nopRecorder) ObserveWindows(int, int)                {}
