package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "selector",
	Short: "Walk-forward optimal system selector",
	Long: `Optimal Selector CLI

후보 트레이딩 시스템을 walk-forward 방식으로 평가하고
각 테스트 구간마다 학습 구간 성과가 가장 좋은 시스템을 선택합니다.

Usage:
  go run ./cmd/selector [command]

Examples:
  go run ./cmd/selector run -f config/strategy/ma_crossover.yaml
  go run ./cmd/selector plan --n 120 --train 30 --test 20
  go run ./cmd/selector api -f config/strategy/ma_crossover.yaml
  go run ./cmd/selector test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&strategyFile, "file", "f", "config/strategy/ma_crossover.yaml", "strategy YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
