// Command bench runs a synthetic workload against the block cache and exposes
// optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/bcache/bcache"
	pmet "github.com/IvanBrykalov/bcache/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "bench:", err)
		os.Exit(2)
	}
	log := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("bench failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	// ---- pprof server (on DefaultServeMux) ----
	if cfg.PprofAddr != "" {
		go func() {
			log.Info("pprof: serving", "addr", cfg.PprofAddr)
			log.Warn("pprof server stopped", "error", http.ListenAndServe(cfg.PprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	var metrics bcache.Metrics = bcache.NoopMetrics{}
	if cfg.MetricsAddr != "" {
		metrics = pmet.New(nil, "bcache", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics: serving", "addr", cfg.MetricsAddr)
			log.Warn("metrics server stopped", "error", http.ListenAndServe(cfg.MetricsAddr, nil))
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration.Duration)
	defer cancel()

	// ---- Devices and cache ----
	tab, closeDevices, err := buildDriver(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDevices(); err != nil {
			log.Warn("closing devices", "error", err)
		}
	}()

	c := bcache.New(bcache.Options{
		Slots:        cfg.Slots,
		Buckets:      cfg.Buckets,
		BlockSize:    cfg.BlockSize,
		Driver:       tab,
		TickInterval: cfg.TickInterval.Duration,
		Metrics:      metrics,
		Logger:       log.With("component", "bcache"),
	})

	// ---- Load generation ----
	var ops, writes atomic.Uint64
	blocksMax := uint64(cfg.Blocks - 1)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		seed := cfg.Seed + int64(w)*9973
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(seed))
			zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, blocksMax)

			for gctx.Err() == nil {
				dev := uint32(1 + r.Intn(cfg.Devices))
				b := c.ReadBlock(dev, uint32(zipf.Uint64()))
				if r.Intn(100) < cfg.WritePct {
					data := b.Data()
					binary.LittleEndian.PutUint64(data, binary.LittleEndian.Uint64(data)+1)
					c.Write(b)
					writes.Add(1)
				}
				c.Release(b)
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	// ---- Report ----
	st := c.Stats()
	lookups := st.Hits() + st.Misses
	hitRate := 0.0
	if lookups > 0 {
		hitRate = float64(st.Hits()) / float64(lookups) * 100
	}
	n := ops.Load()

	fmt.Printf("driver=%s devices=%d blocks=%d slots=%d buckets=%d block=%dB workers=%d dur=%v seed=%d\n",
		cfg.Driver, cfg.Devices, cfg.Blocks, st.Slots, st.Buckets, cfg.BlockSize, cfg.Workers, elapsed, cfg.Seed)
	fmt.Printf("ops=%d (%.0f ops/s)  writes=%d\n", n, float64(n)/elapsed.Seconds(), writes.Load())
	fmt.Printf("hits=%d (fast=%d arbiter=%d)  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		st.Hits(), st.FastHits, st.ArbiterHits, st.Misses, hitRate, st.Evictions)
	fmt.Printf("device reads=%d  device writes=%d\n", st.Reads, st.Writes)
	return nil
}
