package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IvanBrykalov/bcache/bcache"
	"github.com/IvanBrykalov/bcache/device"
	"github.com/IvanBrykalov/bcache/device/objstore"
	"github.com/IvanBrykalov/bcache/device/objstore/minio"
	"github.com/IvanBrykalov/bcache/device/objstore/s3"
)

// buildDriver mounts cfg.Devices devices (numbered from 1) in a table and
// returns it with a close function for any backing files.
func buildDriver(ctx context.Context, cfg Config, log *slog.Logger) (*device.Table, func() error, error) {
	tab := device.NewTable()
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	var shared bcache.Driver // one object device serves every device number
	switch cfg.Driver {
	case "mem", "file":
	case "s3", "minio":
		d, err := buildObjectDevice(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		shared = d
	default:
		return nil, nil, fmt.Errorf("unknown driver %q (use mem, file, s3 or minio)", cfg.Driver)
	}

	for dev := uint32(1); dev <= uint32(cfg.Devices); dev++ {
		var d bcache.Driver
		switch cfg.Driver {
		case "mem":
			m := device.NewMemory(uint32(cfg.Blocks), cfg.BlockSize)
			m.SetLatency(cfg.Latency.Duration)
			d = m
		case "file":
			f, err := device.OpenFile(cfg.FilePrefix+"."+strconv.FormatUint(uint64(dev), 10), device.FileOptions{
				BlockSize: cfg.BlockSize,
				Blocks:    uint32(cfg.Blocks),
				Sync:      cfg.FileSync,
				Create:    true,
			})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			closers = append(closers, f.Close)
			d = f
		default:
			d = shared
		}
		if cfg.ThrottleOps > 0 || cfg.ThrottleBytes > 0 {
			d = device.NewThrottled(d, device.Throttle{OpsPerSec: cfg.ThrottleOps, BytesPerSec: cfg.ThrottleBytes})
		}
		if err := tab.Mount(dev, d); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
	}

	log.Info("devices mounted",
		"driver", cfg.Driver,
		"devices", tab.Devices(),
		"blocks", cfg.Blocks,
		"throttle_ops", cfg.ThrottleOps,
		"throttle_bytes", cfg.ThrottleBytes,
	)
	return tab, closeAll, nil
}

func buildObjectDevice(ctx context.Context, cfg Config) (*objstore.Device, error) {
	codec, err := objstore.ParseCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	var store objstore.Store
	if cfg.Driver == "s3" {
		st, err := s3.Open(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		store = st
	} else {
		client, err := minio.Dial(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Secure)
		if err != nil {
			return nil, err
		}
		st := minio.NewStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix)
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio bucket %s: %w", cfg.Minio.Bucket, err)
		}
		store = st
	}

	return objstore.New(store, objstore.Options{
		BlockSize:   cfg.BlockSize,
		Codec:       codec,
		MaxInFlight: cfg.InFlight,
		CacheBytes:  cfg.ObjCacheMB << 20,
	})
}
