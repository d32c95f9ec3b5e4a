package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/tui"
	httpadapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/observability"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a synthetic fiber workload and report runtime statistics",
	Long: `Bench spawns a configurable number of fibers across the three priority
classes, drives them through yield/sleep cycles, and prints the runtime's
diagnostic aggregates. With --serve, the diagnostics are also exposed over
HTTP (health, JSON stats, Prometheus metrics) for the duration of the run.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("fibers", 0, "Number of fibers to spawn (overrides config)")
	benchCmd.Flags().Int("yields", 0, "Yield iterations per fiber (overrides config)")
	benchCmd.Flags().String("sleep", "", "Per-iteration sleep, e.g. 1ms (overrides config)")
	benchCmd.Flags().String("config", "", "Workload config file (YAML or JSON)")
	benchCmd.Flags().String("serve", "", "Serve diagnostics on this address, e.g. :2112")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level)

	cfg := DefaultWorkload()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = LoadWorkload(path); err != nil {
			return err
		}
	}
	if n, _ := cmd.Flags().GetInt("fibers"); n > 0 {
		cfg.Fibers = n
	}
	if n, _ := cmd.Flags().GetInt("yields"); n > 0 {
		cfg.Yields = n
	}
	if s, _ := cmd.Flags().GetString("sleep"); s != "" {
		cfg.Sleep = s
	}
	sleep, err := cfg.SleepDuration()
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("serve"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(observability.NewCollector())
		handler := httpadapter.NewHandler(reg, logger)
		go func() {
			logger.Info("serving diagnostics", "addr", addr)
			if err := http.ListenAndServe(addr, handler); err != nil {
				logger.Error("diagnostics server stopped", "error", err)
			}
		}()
	}

	priorities := []tendril.Priority{tendril.Low, tendril.Normal, tendril.High}

	start := time.Now()
	tendril.Run(func() {
		fibers := make([]*tendril.Fiber, 0, cfg.Fibers)
		for i := 0; i < cfg.Fibers; i++ {
			opts := []tendril.Option{
				tendril.WithName(fmt.Sprintf("bench-%d", i)),
				tendril.WithPriority(priorities[i%len(priorities)]),
			}
			if cfg.StackSize > 0 {
				opts = append(opts, tendril.WithStackSize(cfg.StackSize))
			}
			fibers = append(fibers, tendril.Go(func() {
				for y := 0; y < cfg.Yields; y++ {
					tendril.Yield()
					if sleep > 0 {
						tendril.Sleep(sleep)
					}
				}
			}, opts...))
		}
		for _, fb := range fibers {
			fb.Join()
		}
	}, tendril.WithLogger(logger))
	elapsed := time.Since(start)

	tui.RenderStats(os.Stdout, tendril.RuntimeStats())
	fmt.Printf("  %-24s %v\n", "wall time", elapsed)
	return nil
}
