package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	cache "github.com/krisalay/session-cache"
	"github.com/krisalay/session-cache/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// benchConfig is the shape of the optional --config YAML file.
// Flags given on the command line win over the file.
type benchConfig struct {
	Shards          int           `yaml:"shards"`
	PreloadKeys     int           `yaml:"preload_keys"`
	Sessions        int           `yaml:"sessions"`
	Goroutines      int           `yaml:"goroutines"`
	OpsPerGoroutine int           `yaml:"ops_per_goroutine"`
	WritePercent    int           `yaml:"write_percent"`
	TTL             time.Duration `yaml:"ttl"`
	MetricsAddr     string        `yaml:"metrics_addr"`
}

func defaultBenchConfig() benchConfig {
	return benchConfig{
		Shards:          16,
		PreloadKeys:     100000,
		Sessions:        8,
		Goroutines:      200,
		OpsPerGoroutine: 5000,
		WritePercent:    10,
		TTL:             time.Minute,
	}
}

func (c benchConfig) validate() error {
	if c.PreloadKeys <= 0 || c.Sessions <= 0 || c.Goroutines <= 0 || c.OpsPerGoroutine <= 0 {
		return errors.New("preload_keys, sessions, goroutines and ops_per_goroutine must be positive")
	}
	if c.WritePercent < 0 || c.WritePercent > 100 {
		return fmt.Errorf("write_percent must be within [0, 100], got %d", c.WritePercent)
	}
	return nil
}

// loadBenchConfig reads path over the defaults. An empty path means defaults only.
func loadBenchConfig(path string) (benchConfig, error) {
	cfg := defaultBenchConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read bench config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse bench config %s: %w", path, err)
	}
	return cfg, nil
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure cache throughput under concurrent mixed load",
	RunE:  runBench,
}

func init() {
	addBenchFlags(benchCmd.Flags())
}

func addBenchFlags(f *pflag.FlagSet) {
	f.String("config", "", "YAML file with bench settings")
	f.Int("shards", 16, "Number of shards")
	f.Int("preload-keys", 100000, "Keys written before the run")
	f.Int("sessions", 8, "Number of sessions the keys are spread over")
	f.Int("goroutines", 200, "Concurrent workers")
	f.Int("ops", 5000, "Operations per worker")
	f.Int("write-percent", 10, "Share of operations that are writes")
	f.Duration("ttl", time.Minute, "TTL of written entries (0 = no expiry)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

// applyFlags overrides cfg with every flag explicitly set on the command line.
func applyFlags(f *pflag.FlagSet, cfg *benchConfig) {
	if f.Changed("shards") {
		cfg.Shards, _ = f.GetInt("shards")
	}
	if f.Changed("preload-keys") {
		cfg.PreloadKeys, _ = f.GetInt("preload-keys")
	}
	if f.Changed("sessions") {
		cfg.Sessions, _ = f.GetInt("sessions")
	}
	if f.Changed("goroutines") {
		cfg.Goroutines, _ = f.GetInt("goroutines")
	}
	if f.Changed("ops") {
		cfg.OpsPerGoroutine, _ = f.GetInt("ops")
	}
	if f.Changed("write-percent") {
		cfg.WritePercent, _ = f.GetInt("write-percent")
	}
	if f.Changed("ttl") {
		cfg.TTL, _ = f.GetDuration("ttl")
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = f.GetString("metrics-addr")
	}
}

func runBench(cmd *cobra.Command, _ []string) error {
	logger := loggerFor(cmd)
	out := cmd.OutOrStdout()

	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadBenchConfig(path)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), &cfg)
	if err := cfg.validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg, "bench")
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	c := cache.New(
		cache.WithShards[int](cfg.Shards),
		cache.WithMetrics[int](m),
		cache.WithLogger[int](logger),
	)
	defer c.Close()

	if err := metrics.RegisterSize(reg, "bench", c.Count); err != nil {
		return fmt.Errorf("register size gauge: %w", err)
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	sessions := make([]string, cfg.Sessions)
	for i := range sessions {
		sessions[i] = uuid.NewString()
	}
	keys := make([]string, cfg.PreloadKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	fmt.Fprintln(out, "\n================ CACHE LOAD BENCHMARK =================")
	fmt.Fprintln(out, "Shards        :", cfg.Shards)
	fmt.Fprintln(out, "Preload Keys  :", cfg.PreloadKeys)
	fmt.Fprintln(out, "Sessions      :", cfg.Sessions)
	fmt.Fprintln(out, "Goroutines    :", cfg.Goroutines)
	fmt.Fprintln(out, "Ops/Goroutine :", cfg.OpsPerGoroutine)
	fmt.Fprintln(out, "Write %       :", cfg.WritePercent)
	fmt.Fprintln(out, "TTL           :", cfg.TTL)

	logger.Info("preloading cache", "keys", cfg.PreloadKeys)
	for i, k := range keys {
		if _, err := c.AddOrUpdate(k, i+1, sessions[i%len(sessions)], cfg.TTL); err != nil {
			return err
		}
	}

	logger.Info("running concurrency benchmark")
	start := time.Now()

	g, ctx := errgroup.WithContext(cmd.Context())
	for w := 0; w < cfg.Goroutines; w++ {
		g.Go(func() error {
			for j := 0; j < cfg.OpsPerGoroutine; j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				idx := (w*cfg.OpsPerGoroutine + j) % len(keys)
				session := sessions[idx%len(sessions)]
				if j%100 < cfg.WritePercent {
					if _, err := c.AddOrUpdate(keys[idx], j+1, session, cfg.TTL); err != nil {
						return err
					}
					continue
				}
				c.Get(keys[idx], session)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	totalOps := cfg.Goroutines * cfg.OpsPerGoroutine

	fmt.Fprintln(out, "\n================ RESULTS =================")
	fmt.Fprintf(out, "Total Operations : %d\n", totalOps)
	fmt.Fprintf(out, "Total Time       : %v\n", duration)
	fmt.Fprintf(out, "Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Fprintf(out, "Entries          : %d\n", c.Count())
	fmt.Fprintln(out, "=========================================")
	return nil
}
