package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/optimal-selector/internal/selection"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "스냅샷으로 선택 재현",
	Long: `저장된 스냅샷에서 선택기를 복원하고 다시 계산합니다.

스냅샷은 선택기 설정과 후보 목록을 담고 있으며,
데이터 소스와 조회 구간은 전략 파일(-f)에서 가져옵니다.
--snapshot 이 없으면 --name 으로 PostgreSQL에서 로드합니다.

Example:
  go run ./cmd/selector replay --snapshot out/ma.yaml
  go run ./cmd/selector replay --name ma-crossover -f config/strategy/ma_crossover.yaml`,
	RunE: runReplay,
}

var (
	replaySnapshot  string
	replayName      string
	replaySynthetic bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replaySnapshot, "snapshot", "", "스냅샷 YAML 경로")
	replayCmd.Flags().StringVar(&replayName, "name", "", "PostgreSQL에 저장된 선택기 이름")
	replayCmd.Flags().BoolVar(&replaySynthetic, "synthetic", false, "data.source를 무시하고 synthetic 데이터 사용")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if (replaySnapshot == "") == (replayName == "") {
		return fmt.Errorf("exactly one of --snapshot or --name is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, strategyFile, replaySynthetic && replayName == "")
	if err != nil {
		return err
	}
	defer rt.Close()

	var snap *selection.Snapshot
	if replaySnapshot != "" {
		snap, err = selection.ReadSnapshotFile(replaySnapshot)
	} else {
		if rt.db == nil {
			return fmt.Errorf("--name requires data.source: postgres")
		}
		snap, err = selection.NewRepository(rt.db.Pool).Load(ctx, replayName)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	sel, err := rt.restoreSelector(snap)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	printHeader("Snapshot Replay", map[string]string{
		"Selector":   sel.Name(),
		"Hash":       snap.Hash[:12],
		"Created":    snap.CreatedAt.Format("2006-01-02 15:04:05"),
		"Candidates": fmt.Sprintf("%d", len(sel.Candidates())),
	})

	if err := rt.calculate(ctx, sel); err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	windows := sel.GetWindows()
	printWindows(windows)
	printWinnerSummary(windows)
	return nil
}
