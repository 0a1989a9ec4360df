package tiered

import (
	"context"
	"fmt"
)

// NewStore returns a concrete store for the requested driver, wrapped with
// encryption and shaping when configured. A driver that fails to initialize
// yields a store that reports the construction error on every call; use
// OpenStore to get the error directly.
//
// Example: file-backed disk tier
//
//	ctx := context.Background()
//	disk := tiered.NewStore(ctx, tiered.StoreConfig{
//		Driver:  tiered.DriverFile,
//		FileDir: "/var/lib/app/slots",
//	})
//	fmt.Println(disk.Driver()) // file
func NewStore(ctx context.Context, cfg StoreConfig) Store {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return &errorStore{driver: cfg.withDefaults().Driver, err: err}
	}
	return store
}

// OpenStore is NewStore with construction errors returned to the caller.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	cfg = cfg.withDefaults()
	base, err := openBaseStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	store, err := newEncryptingStore(base, cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return newShapingStore(store, cfg.Compression, cfg.MaxValueBytes), nil
}

func openBaseStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return newMemoryStore(), nil
	case DriverNull:
		return newNullStore(), nil
	case DriverFile:
		return newFileStore(cfg.FileDir)
	case DriverRedis:
		return newRedisStore(cfg.RedisClient, cfg.Prefix), nil
	case DriverNATS:
		return newNATSStore(cfg.NATSKeyValue, cfg.Prefix), nil
	case DriverSQL:
		return newSQLStore(ctx, cfg)
	case DriverDynamo:
		return newDynamoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// NewStoreWith builds a store using a driver and a set of functional options.
func NewStoreWith(ctx context.Context, driver Driver, opts ...StoreOption) Store {
	cfg := StoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewMemoryStore is a convenience for an in-process store.
func NewMemoryStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverMemory, opts...)
}

// NewFileStore is a convenience for a filesystem-backed store.
func NewFileStore(ctx context.Context, dir string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewRedisStore is a convenience for a redis-backed store. Redis client is required.
//
// Example: redis helper
//
//	ctx := context.Background()
//	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	disk := tiered.NewRedisStore(ctx, client, tiered.WithPrefix("app"))
//	fmt.Println(disk.Driver()) // redis
func NewRedisStore(ctx context.Context, client RedisClient, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewNATSStore is a convenience for a JetStream key-value backed store.
func NewNATSStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewSQLStore is a convenience for a database/sql backed store.
func NewSQLStore(ctx context.Context, driverName, dsn string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverSQL, append([]StoreOption{WithSQL(driverName, dsn)}, opts...)...)
}

// NewDynamoStore is a convenience for a DynamoDB backed store.
func NewDynamoStore(ctx context.Context, client DynamoAPI, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverDynamo, append([]StoreOption{WithDynamoClient(client)}, opts...)...)
}

// New builds a resolver whose disk tier and request counter come from cfg.
//
// Example: file disk tier, counter shared through redis
//
//	ctx := context.Background()
//	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	r, err := tiered.New(ctx, tiered.Config{
//		Disk:    tiered.StoreConfig{Driver: tiered.DriverFile, FileDir: "/var/lib/app/slots"},
//		Counter: tiered.StoreConfig{Driver: tiered.DriverRedis, RedisClient: client},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	rec, _, _ := r.Network(ctx)
//	fmt.Println(rec.Payload) // Server Response #1
func New(ctx context.Context, cfg Config) (*Resolver, error) {
	cfg = cfg.withDefaults()
	if cfg.Counter.Driver == DriverNull {
		return nil, fmt.Errorf("network counter cannot use the %s driver", DriverNull)
	}
	disk, err := OpenStore(ctx, cfg.Disk)
	if err != nil {
		return nil, fmt.Errorf("disk tier: %w", err)
	}
	counter, err := OpenStore(ctx, cfg.Counter)
	if err != nil {
		_ = closeStore(disk)
		return nil, fmt.Errorf("network counter: %w", err)
	}
	return NewResolver(newMemoryStore(), disk, NewCounterOrigin(counter),
		WithObserver(cfg.Observer),
		WithStaleAfter(cfg.StaleAfter),
		WithSlotKey(cfg.SlotKey),
	), nil
}
