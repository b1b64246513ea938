package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/optimal-selector/internal/contracts"
	"github.com/wonny/optimal-selector/pkg/config"
	"github.com/wonny/optimal-selector/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Logger 기능 테스트",
	Long: `구조화된 로깅 기능을 테스트합니다.

이 명령어는:
- JSON/Console 포맷 테스트
- 구조화된 필드 로깅
- 에러 컨텍스트 로깅

Example:
  go run ./cmd/selector test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Optimal Selector Logger Test ===")

	steps := []struct {
		title string
		cfg   *config.Config
		run   func(*logger.Logger)
	}{
		{"1. JSON Format (Production)", logConfig("production", "info", "json"), logLevels},
		{"2. Console Format (Development)", logConfig("development", "debug", "console"), logLevels},
		{"3. Structured Logging with Fields", logConfig("production", "info", "json"), logFields},
		{"4. Error Logging", logConfig("production", "error", "json"), logErrors},
	}

	for _, s := range steps {
		fmt.Println(s.title)
		fmt.Println("--------------------------------")
		s.run(logger.New(s.cfg))
		fmt.Println()
	}

	fmt.Println("✅ All logger tests completed!")
	return nil
}

func logConfig(env, level, format string) *config.Config {
	return &config.Config{
		Env:       env,
		LogLevel:  level,
		LogFormat: format,
	}
}

func logLevels(log *logger.Logger) {
	log.Debug("Planning walk-forward windows")
	log.Info("Selector started")
	log.Warn("Candidate skipped: no price data")
	log.Error("Calendar lookup failed")
}

func logFields(log *logger.Logger) {
	// Single field
	log.WithField("selector", "ma-crossover").Info("Calculate started")

	// Multiple fields
	log.WithFields(map[string]interface{}{
		"window":     3,
		"winner":     "ma_5_10",
		"instrument": "sz000001",
		"score":      101532.25,
	}).Info("Window winner selected")

	// Chained fields
	log.WithField("module", "selection").
		WithField("mode", "max").
		Info("Ranking candidates")
}

func logErrors(log *logger.Logger) {
	err := fmt.Errorf("ma_3_5: %w", errors.Join(contracts.ErrEvaluation, contracts.ErrNoData))

	// Simple error
	log.WithError(err).Error("Candidate evaluation failed")

	// Error with context
	log.WithError(err).
		WithFields(map[string]interface{}{
			"window":     2,
			"candidates": 4,
			"failed":     1,
		}).
		Error("Window ranked with failures")
}
