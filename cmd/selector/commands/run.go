package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optimal-selector/internal/selection"
	"github.com/wonny/optimal-selector/internal/strategyconfig"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Walk-forward 선택 실행",
	Long: `전략 파일의 후보 시스템으로 walk-forward 선택을 실행합니다.

이 명령어는:
- 전략 YAML 로드 및 검증
- 거래일 캘린더와 가격 데이터 연결 (synthetic 또는 PostgreSQL)
- 구간별 후보 평가 및 승자 선택
- 선택 결과 출력 및 (선택) 스냅샷/DB 저장

Example:
  go run ./cmd/selector run -f config/strategy/ma_crossover.yaml
  go run ./cmd/selector run -f config/strategy/ma_crossover.yaml --snapshot-out out/ma.yaml
  go run ./cmd/selector run -f config/strategy/ma_crossover.yaml --persist`,
	RunE: runSelection,
}

var (
	runSynthetic   bool
	runSnapshotOut string
	runPersist     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runSynthetic, "synthetic", false, "data.source를 무시하고 synthetic 데이터 사용")
	runCmd.Flags().StringVar(&runSnapshotOut, "snapshot-out", "", "선택기 스냅샷 YAML 저장 경로")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "스냅샷과 구간 결과를 PostgreSQL에 저장")
}

func runSelection(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, strategyFile, runSynthetic)
	if err != nil {
		return err
	}
	defer rt.Close()

	if runPersist && rt.db == nil {
		return fmt.Errorf("--persist requires data.source: postgres")
	}

	decision, err := strategyconfig.NewDecisionSnapshot(rt.strategy, rt.yaml, os.Getenv("GIT_COMMIT"))
	if err != nil {
		return fmt.Errorf("decision snapshot: %w", err)
	}

	sel, err := rt.newSelector()
	if err != nil {
		return err
	}

	// Snapshot describes the pool, so take it before the table is populated
	snap, err := sel.Snapshot()
	if err != nil {
		return err
	}

	printHeader("Walk-forward Selection", map[string]string{
		"Selector":    sel.Name(),
		"Strategy":    strategyFile,
		"Config hash": decision.ConfigHash[:12],
		"Candidates":  fmt.Sprintf("%d", len(sel.Candidates())),
	})

	start := time.Now()
	if err := rt.calculate(ctx, sel); err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	windows := sel.GetWindows()
	printWindows(windows)
	printWinnerSummary(windows)
	fmt.Printf("\n✅ Completed in %.2fs\n", time.Since(start).Seconds())

	if runSnapshotOut != "" {
		if err := selection.WriteSnapshotFile(runSnapshotOut, snap); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Printf("💾 Snapshot written to %s (hash %s)\n", runSnapshotOut, snap.Hash[:12])
	}

	if runPersist {
		repo := selection.NewRepository(rt.db.Pool)
		if err := repo.Save(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		if err := repo.SaveWindows(ctx, sel.Name(), windows); err != nil {
			return fmt.Errorf("save windows: %w", err)
		}
		fmt.Printf("💾 Persisted snapshot and %d windows for %q\n", len(windows), sel.Name())
	}

	return nil
}
