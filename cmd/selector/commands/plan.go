package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optimal-selector/internal/calendar"
	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/internal/selection"
	"github.com/wonny/optimal-selector/pkg/config"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "구간 계획 미리보기",
	Long: `평일 캘린더 위에서 학습/테스트 구간 분할만 출력합니다.
후보 평가는 하지 않습니다.

--train / --test 가 0이면 SELECTOR_TRAIN_LEN / SELECTOR_TEST_LEN 환경변수를 사용합니다.

Example:
  go run ./cmd/selector plan --n 120 --train 30 --test 20
  go run ./cmd/selector plan --n 60 --from 2024-06-03`,
	RunE: runPlan,
}

var (
	planSessions int
	planTrain    int
	planTest     int
	planFrom     string
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().IntVar(&planSessions, "n", 120, "거래일 수")
	planCmd.Flags().IntVar(&planTrain, "train", 0, "학습 구간 길이")
	planCmd.Flags().IntVar(&planTest, "test", 0, "테스트 구간 길이")
	planCmd.Flags().StringVar(&planFrom, "from", "2024-01-01", "시작 날짜 (YYYY-MM-DD)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	from, err := time.Parse(contracts.DateLayout, planFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}

	if planTrain == 0 || planTest == 0 {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if planTrain == 0 {
			planTrain = cfg.Selector.TrainLen
		}
		if planTest == 0 {
			planTest = cfg.Selector.TestLen
		}
	}

	dates := calendar.Weekdays(from, planSessions).Dates()
	if planTrain <= 0 || planTest <= 0 {
		return fmt.Errorf("--train and --test must be > 0")
	}
	windows := selection.PlanWindows(dates, planTrain, planTest)

	printHeader("Window Plan", map[string]string{
		"Sessions": fmt.Sprintf("%d", len(dates)),
		"Train":    fmt.Sprintf("%d", planTrain),
		"Test":     fmt.Sprintf("%d", planTest),
		"Windows":  fmt.Sprintf("%d", len(windows)),
	})

	fmt.Printf("%-4s  %-10s  %-10s  %-10s  %s\n", "#", "TRAIN", "TEST", "TEST END", "SESSIONS")
	for i, w := range windows {
		fmt.Printf("%-4d  %-10s  %-10s  %-10s  %d\n",
			i,
			w.Train.Start.Format(contracts.DateLayout),
			w.Test.Start.Format(contracts.DateLayout),
			w.Test.End.Format(contracts.DateLayout),
			w.Sessions(),
		)
	}
	return nil
}
