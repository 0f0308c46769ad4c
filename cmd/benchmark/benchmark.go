package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	cache "github.com/krisalay/salon-cache"
	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/engine"
	"github.com/krisalay/salon-cache/expiration"
	clog "github.com/krisalay/salon-cache/internal/log"
	"github.com/krisalay/salon-cache/types"
)

// ================= BACKING STORE =================

// slowSource simulates a remote backend: every call takes latency.
type slowSource struct {
	latency time.Duration
	calls   atomic.Int64
}

func (s *slowSource) Fetch(ctx context.Context) ([]string, error) {
	s.calls.Add(1)
	time.Sleep(s.latency)
	return []string{"Cut & Finish", "Colour", "Blow Dry"}, nil
}

// ================= BENCHMARK =================

type benchConfig struct {
	goroutines      int
	opsPerG         int
	latency         time.Duration
	ttl             time.Duration
	invalidateEvery time.Duration
	logLevel        string
}

type benchResult struct {
	totalOps      int
	duration      time.Duration
	invalidations int64
	backendCalls  int64
}

func newRootCmd() *cobra.Command {
	cfg := &benchConfig{}

	cmd := &cobra.Command{
		Use:          "benchmark",
		Short:        "Concurrent load against one store while invalidations fire",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.goroutines <= 0 || cfg.opsPerG <= 0 {
				return fmt.Errorf("goroutines and ops must be positive")
			}
			if err := clog.InitLogger(cfg.logLevel); err != nil {
				return err
			}
			res := runBenchmark(cmd.Context(), cfg, cmd.OutOrStdout())
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.goroutines, "goroutines", 200, "concurrent readers")
	f.IntVar(&cfg.opsPerG, "ops", 5000, "fetches per reader")
	f.DurationVar(&cfg.latency, "latency", 20*time.Millisecond, "simulated backend latency")
	f.DurationVar(&cfg.ttl, "ttl", 5*time.Minute, "freshness window")
	f.DurationVar(&cfg.invalidateEvery, "invalidate-every", 5*time.Millisecond, "publish invalidate-services this often (0 disables)")
	f.StringVar(&cfg.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func runBenchmark(ctx context.Context, cfg *benchConfig, out io.Writer) benchResult {
	fmt.Fprintln(out, "\n================ CACHE LOAD BENCHMARK =================")

	fmt.Fprintln(out, "CONFIG")
	fmt.Fprintln(out, "---------------------------------")
	fmt.Fprintln(out, "Goroutines       :", cfg.goroutines)
	fmt.Fprintln(out, "Ops/Goroutine    :", cfg.opsPerG)
	fmt.Fprintln(out, "Backend Latency  :", cfg.latency)
	fmt.Fprintln(out, "TTL              :", cfg.ttl)
	fmt.Fprintln(out, "Invalidate Every :", cfg.invalidateEvery)
	fmt.Fprintln(out, "---------------------------------")

	// ---------------- Store ----------------
	src := &slowSource{latency: cfg.latency}
	eng := engine.NewEngine[[]string](
		&expiration.ExpireAfterWrite{TTL: cfg.ttl},
		types.FetcherFunc[[]string](src.Fetch),
		nil,
		nil,
	)
	store := cache.NewStore[[]string](types.Services, eng, []string{})

	b := bus.New()
	b.Subscribe(types.Services, func(bus.Event) { store.Invalidate() })

	// ---------------- Warmup ----------------
	fmt.Fprintln(out, "Warming up cache...")
	store.Fetch(ctx)
	fmt.Fprintln(out, "Warmup complete.")

	// ---------------- Invalidator ----------------
	stop := make(chan struct{})
	var published atomic.Int64
	var invWG sync.WaitGroup
	if cfg.invalidateEvery > 0 {
		invWG.Add(1)
		go func() {
			defer invWG.Done()
			t := time.NewTicker(cfg.invalidateEvery)
			defer t.Stop()
			for {
				select {
				case <-stop:
					return
				case <-t.C:
					b.Publish(types.Services)
					published.Add(1)
				}
			}
		}()
	}

	// ---------------- Load Test ----------------
	fmt.Fprintln(out, "Running concurrency benchmark...")

	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(cfg.goroutines)

	for i := 0; i < cfg.goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < cfg.opsPerG; j++ {
				store.Fetch(ctx)
			}
		}()
	}

	wg.Wait()
	duration := time.Since(start)
	close(stop)
	invWG.Wait()

	return benchResult{
		totalOps:      cfg.goroutines * cfg.opsPerG,
		duration:      duration,
		invalidations: published.Load(),
		backendCalls:  src.calls.Load(),
	}
}

func printResult(out io.Writer, r benchResult) {
	fmt.Fprintln(out, "\n================ RESULTS =================")
	fmt.Fprintf(out, "Total Operations : %d\n", r.totalOps)
	fmt.Fprintf(out, "Total Time       : %v\n", r.duration)
	fmt.Fprintf(out, "Throughput       : %.2f ops/sec\n", float64(r.totalOps)/r.duration.Seconds())
	fmt.Fprintf(out, "Invalidations    : %d\n", r.invalidations)
	fmt.Fprintf(out, "Backend Calls    : %d\n", r.backendCalls)
	fmt.Fprintln(out, "=========================================")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
