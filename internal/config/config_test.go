package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goforj/tiered"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DiskDriver != "file" || cfg.CounterDriver != "file" {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if cfg.Prefix != "tiered" || cfg.Compression != "none" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" || cfg.NATSBucket != "tiered" || cfg.DynamoRegion != "us-east-1" {
		t.Fatalf("unexpected backend defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TIERED_DISK_DRIVER", "redis")
	t.Setenv("TIERED_COUNTER_DRIVER", "memory")
	t.Setenv("TIERED_STALE_AFTER", "90s")
	t.Setenv("TIERED_REDIS_DB", "3")
	t.Setenv("TIERED_QUIET", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DiskDriver != "redis" || cfg.CounterDriver != "memory" {
		t.Fatalf("drivers not loaded: %+v", cfg)
	}
	if cfg.StaleAfter != 90*time.Second || cfg.RedisDB != 3 || !cfg.Quiet {
		t.Fatalf("typed values not loaded: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TIERED_STALE_AFTER", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DiskDriver: "file", CounterDriver: "file", Compression: "none", LogFormat: "text"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "null disk", mutate: func(c *Config) { c.DiskDriver = "null" }, ok: true},
		{name: "null counter", mutate: func(c *Config) { c.CounterDriver = "null" }},
		{name: "unknown driver", mutate: func(c *Config) { c.DiskDriver = "tape" }},
		{name: "gzip", mutate: func(c *Config) { c.Compression = "gzip" }, ok: true},
		{name: "unknown codec", mutate: func(c *Config) { c.Compression = "lz4" }},
		{name: "json logs", mutate: func(c *Config) { c.LogFormat = "json" }, ok: true},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "good key", mutate: func(c *Config) { c.EncryptionKey = "0123456789abcdef" }, ok: true},
		{name: "bad key", mutate: func(c *Config) { c.EncryptionKey = "short" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateBadKeyIsEncryptionError(t *testing.T) {
	cfg := Config{DiskDriver: "file", CounterDriver: "file", Compression: "none", LogFormat: "text", EncryptionKey: "x"}
	if err := cfg.Validate(); !errors.Is(err, tiered.ErrEncryptionKey) {
		t.Fatalf("expected ErrEncryptionKey, got %v", err)
	}
}

func TestOpenFileBackedResolverPersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		DiskDriver:    "file",
		CounterDriver: "file",
		FileDir:       t.TempDir(),
		Prefix:        "tiered",
		Compression:   "gzip",
		LogFormat:     "text",
	}
	r, b, err := cfg.Open(ctx, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if rec, _, err := r.Network(ctx); err != nil || rec.Payload != "Server Response #1" {
		t.Fatalf("unexpected network: %q %v", rec.Payload, err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	r, b, err = cfg.Open(ctx, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer b.Close()
	if rec, ok, err := r.Disk(ctx); err != nil || !ok || rec.Payload != "Server Response #1" {
		t.Fatalf("expected persisted disk slot, ok=%v err=%v rec=%q", ok, err, rec.Payload)
	}
	if rec, _, _ := r.Network(ctx); rec.Payload != "Server Response #2" {
		t.Fatalf("expected persisted counter, got %q", rec.Payload)
	}
}

func TestOpenSQLiteDefaultsDSNIntoFileDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := Config{
		DiskDriver:    "sql",
		CounterDriver: "memory",
		SQLDriver:     "sqlite",
		FileDir:       dir,
		Prefix:        "tiered",
		Compression:   "none",
		LogFormat:     "text",
	}
	r, b, err := cfg.Open(ctx, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer b.Close()
	if _, _, err := r.Network(ctx); err != nil {
		t.Fatalf("network failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tiered.db")); err != nil {
		t.Fatalf("expected sqlite file in file dir: %v", err)
	}
}

func TestBackendsCloseReleasesSQLStores(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		DiskDriver:    "sql",
		CounterDriver: "memory",
		SQLDriver:     "sqlite",
		FileDir:       t.TempDir(),
		Prefix:        "tiered",
		Compression:   "none",
		LogFormat:     "text",
	}
	r, b, err := cfg.Open(ctx, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, _, err := r.Network(ctx); err != nil {
		t.Fatalf("network failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, _, err := r.Disk(ctx); err == nil {
		t.Fatalf("expected disk read to fail once the database is closed")
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := Config{DiskDriver: "tape", CounterDriver: "file", Compression: "none", LogFormat: "text"}
	if _, _, err := cfg.Open(context.Background(), nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestOpenRedisDriverBuildsClient(t *testing.T) {
	cfg := Config{
		DiskDriver:    "redis",
		CounterDriver: "redis",
		RedisAddr:     "127.0.0.1:1",
		Prefix:        "tiered",
		Compression:   "none",
		LogFormat:     "text",
	}
	b := &Backends{}
	disk, err := cfg.storeConfig(b, tiered.DriverRedis)
	if err != nil {
		t.Fatalf("store config failed: %v", err)
	}
	counter, _ := cfg.storeConfig(b, tiered.DriverRedis)
	if disk.RedisClient == nil || disk.RedisClient != counter.RedisClient {
		t.Fatalf("expected one shared redis client")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestOpenNATSConnectError(t *testing.T) {
	cfg := Config{NATSURL: "nats://127.0.0.1:1", NATSBucket: "tiered"}
	b := &Backends{}
	if _, err := cfg.storeConfig(b, tiered.DriverNATS); err == nil {
		t.Fatalf("expected nats connect error")
	}
}
