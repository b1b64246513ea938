package commands

import (
	"fmt"
	"sort"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/selection"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printHeader prints a boxed header with key/value lines in key order
func printHeader(title string, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println("───────────────────────────────────────────────────────────")
	for _, k := range keys {
		fmt.Printf("  %-12s: %s\n", k, fields[k])
	}
	fmt.Println("───────────────────────────────────────────────────────────")
}

// printWindows prints one line per selected window
func printWindows(windows []selection.WindowView) {
	if len(windows) == 0 {
		fmt.Println("\n⚠️  No windows selected (not enough sessions or no candidate succeeded)")
		return
	}

	fmt.Printf("\n%-10s  %-10s  %-10s  %-16s  %-10s  %14s\n", "TRAIN", "TEST", "TEST END", "WINNER", "INSTRUMENT", "SCORE")
	for _, w := range windows {
		fmt.Printf("%-10s  %-10s  %-10s  %-16s  %-10s  %14.4f\n",
			w.Train.Start.Format(contracts.DateLayout),
			w.Test.Start.Format(contracts.DateLayout),
			w.Test.End.Format(contracts.DateLayout),
			w.Name,
			w.Instrument,
			w.Score,
		)
	}
}

// printWinnerSummary prints how often each candidate won
func printWinnerSummary(windows []selection.WindowView) {
	if len(windows) == 0 {
		return
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range windows {
		if counts[w.Name] == 0 {
			order = append(order, w.Name)
		}
		counts[w.Name]++
	}

	fmt.Println("\n📊 Winner frequency:")
	for _, name := range order {
		fmt.Printf("   %-16s %3d / %d\n", name, counts[name], len(windows))
	}
}
