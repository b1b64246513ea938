package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optimal-selector/internal/api"
	"github.com/wonny/optimal-selector/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `선택을 계산한 뒤 결과를 조회하는 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                              - Health check
  GET  /metrics                             - Prometheus metrics
  GET  /api/windows                         - 전체 구간 결과
  GET  /api/selected?date=YYYY-MM-DD        - 해당 날짜의 선택 시스템
  GET  /api/selected/range?from=...&to=...  - 기간과 겹치는 구간
  GET  /api/candidates                      - 후보 목록
  GET  /api/config                          - 선택기 설정

Example:
  go run ./cmd/selector api -f config/strategy/ma_crossover.yaml
  go run ./cmd/selector api --port 8090 --synthetic`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiSynthetic bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
	apiCmd.Flags().BoolVar(&apiSynthetic, "synthetic", false, "data.source를 무시하고 synthetic 데이터 사용")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Optimal Selector API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load config, strategy and data sources
	rt, err := newRuntime(ctx, strategyFile, apiSynthetic)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Override port if flag is set
	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	// 2. Build selector and compute the table
	sel, err := rt.newSelector()
	if err != nil {
		return err
	}
	if err := rt.calculate(ctx, sel); err != nil {
		return fmt.Errorf("calculate: %w", err)
	}
	rt.log.WithField("windows", len(sel.GetWindows())).Info("Selection computed")

	// 3. Create handler, router and server
	selectionHandler := handlers.NewSelectionHandler(sel, rt.log)
	router := api.NewRouter(selectionHandler, rt.metrics, rt.log)
	server := api.New(rt.cfg, rt.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", rt.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// 4. Serve until interrupted, then shut down gracefully
	if err := server.Run(ctx, 30*time.Second); err != nil {
		return err
	}

	rt.log.Info("Server stopped")
	return nil
}
