package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strings"
	"time"
)

// Duration is a time.Duration that reads "250ms" style strings from JSON.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// S3Config selects the bucket for -driver=s3.
type S3Config struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	PathStyle bool   `json:"path_style"`
}

// MinioConfig selects the server for -driver=minio.
type MinioConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Secure    bool   `json:"secure"`
}

// Config is the bench configuration. It is read from an optional JSON file;
// flags given on the command line override the file.
type Config struct {
	ConfigPath string `json:"-"`

	// Cache
	Slots        int      `json:"slots"`
	Buckets      int      `json:"buckets"`
	BlockSize    int      `json:"block_size"`
	TickInterval Duration `json:"tick_interval"`

	// Devices
	Driver     string   `json:"driver"` // mem | file | s3 | minio
	Devices    int      `json:"devices"`
	Blocks     uint     `json:"blocks"`
	Latency    Duration `json:"latency"`     // mem only
	FilePrefix string   `json:"file_prefix"` // file only; device n is <prefix>.<n>
	FileSync   bool     `json:"file_sync"`
	Codec      string   `json:"codec"` // s3 and minio: none | lz4 | zstd
	ObjCacheMB int      `json:"obj_cache_mb"`
	InFlight   int64    `json:"in_flight"`

	S3    S3Config    `json:"s3"`
	Minio MinioConfig `json:"minio"`

	ThrottleOps   float64 `json:"throttle_ops"`
	ThrottleBytes int     `json:"throttle_bytes"`

	// Workload
	Workers  int      `json:"workers"`
	Duration Duration `json:"duration"`
	WritePct int      `json:"write_pct"`
	ZipfS    float64  `json:"zipf_s"`
	ZipfV    float64  `json:"zipf_v"`
	Seed     int64    `json:"seed"`

	// Observability
	PprofAddr   string `json:"pprof_addr"`
	MetricsAddr string `json:"metrics_addr"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"` // text | json
}

func defaultConfig() Config {
	return Config{
		Slots:        256,
		Buckets:      13,
		BlockSize:    1024,
		TickInterval: Duration{10 * time.Millisecond},
		Driver:       "mem",
		Devices:      2,
		Blocks:       1 << 14,
		FilePrefix:   "bench.img",
		Codec:        "lz4",
		ObjCacheMB:   16,
		Minio: MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "bcache-bench",
		},
		Workers:     2 * runtime.GOMAXPROCS(0),
		Duration:    Duration{10 * time.Second},
		WritePct:    20,
		ZipfS:       1.1,
		ZipfV:       1.0,
		Seed:        time.Now().UnixNano(),
		MetricsAddr: ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "JSON config file; flags override it")

	fs.IntVar(&cfg.Slots, "slots", cfg.Slots, "cache slots")
	fs.IntVar(&cfg.Buckets, "buckets", cfg.Buckets, "hash buckets")
	fs.IntVar(&cfg.BlockSize, "block-size", cfg.BlockSize, "block size in bytes")
	fs.DurationVar(&cfg.TickInterval.Duration, "tick", cfg.TickInterval.Duration, "LRU tick period")

	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "device driver: mem | file | s3 | minio")
	fs.IntVar(&cfg.Devices, "devices", cfg.Devices, "number of mounted devices")
	fs.UintVar(&cfg.Blocks, "blocks", cfg.Blocks, "blocks per device (keyspace)")
	fs.DurationVar(&cfg.Latency.Duration, "latency", cfg.Latency.Duration, "per-transfer latency of the mem driver")
	fs.StringVar(&cfg.FilePrefix, "file", cfg.FilePrefix, "file driver path prefix")
	fs.BoolVar(&cfg.FileSync, "file-sync", cfg.FileSync, "fsync after every file write")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "object codec: none | lz4 | zstd")
	fs.IntVar(&cfg.ObjCacheMB, "obj-cache-mb", cfg.ObjCacheMB, "object read cache size in MiB (0 = off)")
	fs.Int64Var(&cfg.InFlight, "in-flight", cfg.InFlight, "max concurrent object store calls (0 = default)")

	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3.Prefix, "s3-prefix", cfg.S3.Prefix, "S3 key prefix")
	fs.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "S3 region (empty = from environment)")
	fs.StringVar(&cfg.S3.Endpoint, "s3-endpoint", cfg.S3.Endpoint, "S3 endpoint override")
	fs.BoolVar(&cfg.S3.PathStyle, "s3-path-style", cfg.S3.PathStyle, "use path-style S3 addressing")

	fs.StringVar(&cfg.Minio.Endpoint, "minio-endpoint", cfg.Minio.Endpoint, "MinIO endpoint")
	fs.StringVar(&cfg.Minio.AccessKey, "minio-access-key", cfg.Minio.AccessKey, "MinIO access key")
	fs.StringVar(&cfg.Minio.SecretKey, "minio-secret-key", cfg.Minio.SecretKey, "MinIO secret key")
	fs.StringVar(&cfg.Minio.Bucket, "minio-bucket", cfg.Minio.Bucket, "MinIO bucket")
	fs.StringVar(&cfg.Minio.Prefix, "minio-prefix", cfg.Minio.Prefix, "MinIO key prefix")
	fs.BoolVar(&cfg.Minio.Secure, "minio-secure", cfg.Minio.Secure, "use TLS for MinIO")

	fs.Float64Var(&cfg.ThrottleOps, "throttle-ops", cfg.ThrottleOps, "per-device transfer limit in ops/s (0 = off)")
	fs.IntVar(&cfg.ThrottleBytes, "throttle-bytes", cfg.ThrottleBytes, "per-device transfer limit in bytes/s (0 = off)")

	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker goroutines (must be < slots)")
	fs.DurationVar(&cfg.Duration.Duration, "duration", cfg.Duration.Duration, "benchmark duration")
	fs.IntVar(&cfg.WritePct, "writes", cfg.WritePct, "write-through percentage [0..100]")
	fs.Float64Var(&cfg.ZipfS, "zipf_s", cfg.ZipfS, "Zipf s > 1 (skew)")
	fs.Float64Var(&cfg.ZipfV, "zipf_v", cfg.ZipfV, "Zipf v")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")

	fs.StringVar(&cfg.PprofAddr, "pprof", cfg.PprofAddr, "serve pprof at addr (e.g. :6060); empty = disabled")
	fs.StringVar(&cfg.MetricsAddr, "http", cfg.MetricsAddr, "serve Prometheus metrics at addr; empty = disabled")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug | info | warn | error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text | json")
	return fs
}

// loadConfig parses args, reading the -config file first when one is named.
func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return cfg, err
	}
	if cfg.ConfigPath == "" {
		return cfg, cfg.validate()
	}

	path := cfg.ConfigPath
	cfg = defaultConfig()
	if err := readJSON(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	// Second pass: command-line flags win over the file.
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (c *Config) validate() error {
	switch {
	case c.Slots <= 0 || c.Buckets <= 0 || c.BlockSize <= 0:
		return fmt.Errorf("slots, buckets and block-size must be > 0")
	case c.Devices <= 0 || c.Blocks == 0:
		return fmt.Errorf("devices and blocks must be > 0")
	case uint64(c.Blocks) > math.MaxUint32:
		return fmt.Errorf("blocks must fit in 32 bits")
	case c.Workers <= 0 || c.Workers >= c.Slots:
		// Each worker holds at most one buffer; one slot must stay free.
		return fmt.Errorf("workers must be in [1, slots-1], got %d with %d slots", c.Workers, c.Slots)
	case c.WritePct < 0 || c.WritePct > 100:
		return fmt.Errorf("writes must be in [0, 100]")
	case c.ZipfS <= 1 || c.ZipfV < 1:
		return fmt.Errorf("zipf_s must be > 1 and zipf_v >= 1")
	}
	return nil
}

// newLogger builds the process logger from a level and format name.
// An unknown level falls back to info with a warning.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	lvlErr := lvl.UnmarshalText([]byte(level))

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	log := slog.New(h)
	if lvlErr != nil {
		log.Warn("unknown log level, using info", "level", level)
	}
	return log
}
