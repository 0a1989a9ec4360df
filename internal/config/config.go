// Package config loads the tiered CLI settings from TIERED_* environment
// variables and turns them into a wired resolver.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goforj/tiered"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Config holds the CLI configuration.
type Config struct {
	DiskDriver    string `env:"TIERED_DISK_DRIVER"    envDefault:"file"`
	CounterDriver string `env:"TIERED_COUNTER_DRIVER" envDefault:"file"`
	Prefix        string `env:"TIERED_PREFIX"         envDefault:"tiered"`
	SlotKey       string `env:"TIERED_SLOT_KEY"`

	FileDir string `env:"TIERED_FILE_DIR"`

	RedisAddr     string `env:"TIERED_REDIS_ADDR"     envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"TIERED_REDIS_PASSWORD"`
	RedisDB       int    `env:"TIERED_REDIS_DB"`

	NATSURL    string `env:"TIERED_NATS_URL"    envDefault:"nats://127.0.0.1:4222"`
	NATSBucket string `env:"TIERED_NATS_BUCKET" envDefault:"tiered"`

	SQLDriver string `env:"TIERED_SQL_DRIVER" envDefault:"sqlite"`
	SQLDSN    string `env:"TIERED_SQL_DSN"`
	SQLTable  string `env:"TIERED_SQL_TABLE"`

	DynamoRegion   string `env:"TIERED_DYNAMO_REGION"   envDefault:"us-east-1"`
	DynamoEndpoint string `env:"TIERED_DYNAMO_ENDPOINT"`
	DynamoTable    string `env:"TIERED_DYNAMO_TABLE"`

	Compression   string `env:"TIERED_COMPRESSION"     envDefault:"none"`
	MaxValueBytes int    `env:"TIERED_MAX_VALUE_BYTES"`
	EncryptionKey string `env:"TIERED_ENCRYPTION_KEY"`

	StaleAfter time.Duration `env:"TIERED_STALE_AFTER"`

	LogFormat string `env:"TIERED_LOG_FORMAT" envDefault:"text"`
	Quiet     bool   `env:"TIERED_QUIET"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks values the drivers would otherwise reject late.
func (c Config) Validate() error {
	for _, d := range []string{c.DiskDriver, c.CounterDriver} {
		switch tiered.Driver(d) {
		case tiered.DriverFile, tiered.DriverMemory, tiered.DriverNull, tiered.DriverRedis,
			tiered.DriverNATS, tiered.DriverSQL, tiered.DriverDynamo:
		default:
			return fmt.Errorf("unknown driver %q", d)
		}
	}
	if tiered.Driver(c.CounterDriver) == tiered.DriverNull {
		return errors.New("counter driver cannot be null")
	}
	switch tiered.CompressionCodec(c.Compression) {
	case tiered.CompressionNone, tiered.CompressionGzip:
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	if n := len(c.EncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return tiered.ErrEncryptionKey
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Backends holds the clients opened for the configured drivers and the
// resolver built on them.
type Backends struct {
	resolver *tiered.Resolver

	redis *redis.Client
	nats  *nats.Conn
	kv    nats.KeyValue
}

// Close releases every opened client.
func (b *Backends) Close() error {
	var errs []error
	if b.resolver != nil {
		errs = append(errs, b.resolver.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.nats != nil {
		errs = append(errs, b.nats.Drain())
	}
	return errors.Join(errs...)
}

// Open connects the backends the drivers need and builds the resolver.
func (c Config) Open(ctx context.Context, observer tiered.Observer) (*tiered.Resolver, *Backends, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	b := &Backends{}
	disk, err := c.storeConfig(b, tiered.Driver(c.DiskDriver))
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	counter, err := c.storeConfig(b, tiered.Driver(c.CounterDriver))
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	r, err := tiered.New(ctx, tiered.Config{
		Disk:       disk,
		Counter:    counter,
		StaleAfter: c.StaleAfter,
		SlotKey:    c.SlotKey,
		Observer:   observer,
	})
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	b.resolver = r
	return r, b, nil
}

func (c Config) storeConfig(b *Backends, driver tiered.Driver) (tiered.StoreConfig, error) {
	cfg := tiered.StoreConfig{
		Driver:         driver,
		Prefix:         c.Prefix,
		FileDir:        c.FileDir,
		SQLDriverName:  c.SQLDriver,
		SQLDSN:         c.SQLDSN,
		SQLTable:       c.SQLTable,
		DynamoRegion:   c.DynamoRegion,
		DynamoEndpoint: c.DynamoEndpoint,
		DynamoTable:    c.DynamoTable,
		Compression:    tiered.CompressionCodec(c.Compression),
		MaxValueBytes:  c.MaxValueBytes,
	}
	if c.EncryptionKey != "" {
		cfg.EncryptionKey = []byte(c.EncryptionKey)
	}
	switch driver {
	case tiered.DriverRedis:
		if b.redis == nil {
			b.redis = redis.NewClient(&redis.Options{
				Addr:     c.RedisAddr,
				Password: c.RedisPassword,
				DB:       c.RedisDB,
			})
		}
		cfg.RedisClient = b.redis
	case tiered.DriverNATS:
		if b.kv == nil {
			kv, err := c.openNATS(b)
			if err != nil {
				return tiered.StoreConfig{}, err
			}
			b.kv = kv
		}
		cfg.NATSKeyValue = b.kv
	case tiered.DriverSQL:
		if cfg.SQLDSN == "" && cfg.SQLDriverName == "sqlite" {
			dir := c.fileDirOrDefault()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return tiered.StoreConfig{}, fmt.Errorf("create sqlite directory: %w", err)
			}
			cfg.SQLDSN = "file:" + filepath.Join(dir, "tiered.db")
		}
	}
	return cfg, nil
}

func (c Config) openNATS(b *Backends) (nats.KeyValue, error) {
	nc, err := nats.Connect(c.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	b.nats = nc
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := js.KeyValue(c.NATSBucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: c.NATSBucket, History: 1})
	}
	if err != nil {
		return nil, fmt.Errorf("nats bucket %q: %w", c.NATSBucket, err)
	}
	return kv, nil
}

func (c Config) fileDirOrDefault() string {
	if c.FileDir != "" {
		return c.FileDir
	}
	return tiered.DefaultFileDir()
}
