package tiered

import (
	"os"
	"path/filepath"
	"time"
)

const defaultPrefix = "tiered"

// DefaultFileDir is where the file driver keeps slots when no directory is set.
func DefaultFileDir() string {
	return filepath.Join(os.TempDir(), "tiered-slots")
}

// StoreConfig controls how a Store is constructed.
type StoreConfig struct {
	Driver Driver

	// Prefix namespaces keys on shared backends (redis, nats, sql, dynamodb).
	Prefix string

	// FileDir controls where the file driver keeps slot files.
	FileDir string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue

	// SQLDriverName is one of "sqlite", "pgx" or "mysql".
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// DynamoClient overrides the client built from DynamoRegion/DynamoEndpoint.
	DynamoClient   DynamoAPI
	DynamoRegion   string
	DynamoEndpoint string
	DynamoTable    string

	// Compression and MaxValueBytes shape values before they reach the backend.
	Compression   CompressionCodec
	MaxValueBytes int

	// EncryptionKey enables AES-GCM encryption of values (16, 24 or 32 bytes).
	EncryptionKey []byte
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.FileDir == "" {
		c.FileDir = DefaultFileDir()
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = "us-east-1"
	}
	return c
}

// Config describes a resolver assembled from store configurations. The
// memory tier is always an in-process store.
type Config struct {
	// Disk configures the disk tier. Defaults to the file driver.
	Disk StoreConfig

	// Counter configures where the network request counter lives.
	// Defaults to the memory driver; the null driver is rejected.
	Counter StoreConfig

	// StaleAfter enables staleness of memory and disk records. Zero disables it.
	StaleAfter time.Duration

	// SlotKey overrides the key used for the record slot.
	SlotKey string

	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.Disk.Driver == "" {
		c.Disk.Driver = DriverFile
	}
	if c.Counter.Driver == "" {
		c.Counter.Driver = DriverMemory
	}
	return c
}
