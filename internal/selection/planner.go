package selection

import (
	"time"

	"github.com/wonny/optimal-selector/internal/contracts"
)

// Window is one walk-forward step: rank on Train, hold the winner over Test.
// Index bounds refer to the calendar passed to PlanWindows.
type Window struct {
	Train contracts.DateRange
	Test  contracts.DateRange

	TrainStart int // first training session
	TestStart  int // first test session, also the end of training
	TestEnd    int // one past the last test session

	Winner int // index into the evaluation set, -1 before ranking
	Score  float64
}

// Sessions returns the number of test sessions
func (w Window) Sessions() int {
	return w.TestEnd - w.TestStart
}

// PlanWindows partitions dates into walk-forward windows.
// Windows start at index trainLen and advance by testLen; the last one takes
// the remainder and ends one Tick after the final date. Degenerate input
// (non-positive lengths or trainLen >= len(dates)) yields no windows.
func PlanWindows(dates []time.Time, trainLen, testLen int) []Window {
	n := len(dates)
	if trainLen <= 0 || testLen <= 0 || trainLen >= n {
		return nil
	}

	windows := make([]Window, 0, (n-trainLen+testLen-1)/testLen)
	for start := trainLen; start < n; start += testLen {
		end := start + testLen
		var testEnd time.Time
		if end >= n {
			end = n
			testEnd = dates[n-1].Add(contracts.Tick)
		} else {
			testEnd = dates[end]
		}

		windows = append(windows, Window{
			Train:      contracts.DateRange{Start: dates[start-trainLen], End: dates[start]},
			Test:       contracts.DateRange{Start: dates[start], End: testEnd},
			TrainStart: start - trainLen,
			TestStart:  start,
			TestEnd:    end,
			Winner:     -1,
		})
	}
	return windows
}
