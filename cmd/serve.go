package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"lwsgo/internal/app"
	"lwsgo/internal/config"
	"lwsgo/internal/metrics"
	"lwsgo/internal/orchestrator"
	"lwsgo/pkg/logging"
)

var (
	serveModelPath      string
	serveConfigPath     string
	serveHealthSchedule string
	serveMetricsAddr    string
)

// serveCmd starts the emulator: it loads a deployment model, constructs
// and registers a provider for every resource kind the model uses, and
// runs until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load a deployment model and run the emulator until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveModelPath, "model", "", "path to the deployment model YAML file (required)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to a runtime config YAML file (optional; LWSGO_-prefixed env vars always apply)")
	serveCmd.Flags().StringVar(&serveHealthSchedule, "health-schedule", "*/1 * * * *", "cron expression for the background health sweep")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	_ = serveCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runtimeCfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading runtime config: %w", err)
	}

	level := logging.LevelInfo
	switch runtimeCfg.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	logging.InitForCLI(level, os.Stdout)

	if err := os.MkdirAll(runtimeCfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", runtimeCfg.DataDir, err)
	}

	model, err := config.LoadDeploymentModel(serveModelPath)
	if err != nil {
		return fmt.Errorf("loading deployment model: %w", err)
	}

	orch, _, err := app.Bootstrap(runtimeCfg, model)
	if err != nil {
		return fmt.Errorf("bootstrapping providers: %w", err)
	}

	if err := orch.StartAll(); err != nil {
		return fmt.Errorf("starting providers: %w", err)
	}
	logging.Info("Serve", "started %d resources from %s", len(model.Resources), serveModelPath)

	sweeper := orchestrator.NewHealthSweeper(orch, func(r orchestrator.HealthReport) {
		metrics.RecordHealth(r.Providers)
	})
	if err := sweeper.Start(serveHealthSchedule); err != nil {
		return fmt.Errorf("starting health sweep: %w", err)
	}

	if serveMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: serveMetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Serve", err, "metrics server exited")
			}
		}()
		defer metricsServer.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("Serve", "shutting down")
	sweeper.Stop()
	return orch.StopAll()
}
