package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"primepool/internal/api"
	"primepool/internal/config"
	"primepool/internal/events"
	"primepool/internal/logger"
	"primepool/internal/metrics"
	"primepool/internal/oracle"
	"primepool/internal/pool"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the worker pool over a workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runPool(cmd.Context(), cmd.OutOrStdout(), cfg, verbose)
		},
	}

	cmd.Flags().Int("workers", 0, "Number of workers (0 = number of CPUs)")
	cmd.Flags().Bool("busy-wait", false, "Poll without sleeping when idle")
	cmd.Flags().String("preset", "mixed", "Workload preset (see 'primepool presets')")
	cmd.Flags().Int("size", 60, "Number of tasks generated by the preset")
	cmd.Flags().String("input", "", "Read tasks from a file, one integer per line")
	cmd.Flags().String("metrics-addr", "", "Serve status and metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every prime as it is found")

	return cmd
}

// runPool はプールを1回実行し、結果を out に書き出す
func runPool(parent context.Context, out io.Writer, cfg *config.FileConfig, verbose bool) error {
	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signalContext(parent)
	defer cancel()

	tasks, err := cfg.Tasks()
	if err != nil {
		return err
	}

	poolCfg, err := cfg.ToPoolConfig()
	if err != nil {
		return fmt.Errorf("config conversion failed: %w", err)
	}

	m := metrics.New()
	poolCfg.Metrics = m

	var bus *events.Bus
	if cfg.Metrics.Addr != "" {
		bus = events.NewBus()
		defer bus.Close()
		poolCfg.Events = bus
	}

	if verbose {
		poolCfg.Observer = logPrime
	}

	var srv *api.Server
	if cfg.Metrics.Addr != "" {
		srv = api.NewServer(cfg.Metrics.Addr, m, bus)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("", "API server error: %v", err)
			}
		}()
	}

	p, err := pool.New(poolCfg)
	if err != nil {
		return err
	}

	if srv != nil {
		srv.SetRunning(p.NumWorkers(), len(tasks))
	}

	start := time.Now()
	result, err := p.Run(ctx, tasks)

	if srv != nil {
		var primes uint64
		if result != nil {
			primes = result.Primes
		}
		srv.SetFinished(primes, err)
	}
	if err != nil {
		return err
	}

	snap := m.Snapshot()
	fmt.Fprintf(out, "Workers: %d, Tasks: %d\n", result.Workers, result.Tasks)
	fmt.Fprintf(out, "Prime Count: %d\n", result.Primes)
	fmt.Fprintf(out, "Avg check: %v, P99 check: %v, Idle polls: %d\n",
		snap.AverageLatency.Round(time.Microsecond), snap.P99Latency.Round(time.Microsecond), snap.IdlePolls)
	fmt.Fprintf(out, "Time taken: %.3f seconds\n", time.Since(start).Seconds())

	return nil
}

// logPrime はワーカーから直接呼ばれ、素数を1件ずつログに出す
// バスと違い取りこぼさない
func logPrime(worker int, task oracle.Task, prime bool) {
	if prime {
		logger.Info(events.WorkerName(worker), "%d is PRIME.", task)
	}
}
