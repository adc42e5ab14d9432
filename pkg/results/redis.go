package results

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logflow/procmine/pkg/errors"
)

// RedisConfig configures the Redis results backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all report keys (e.g., "procmine:reports:")
	Prefix string

	// TTL is the time-to-live for report keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	// PoolSize is the maximum number of connections
	PoolSize int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:  address,
		Prefix:   "procmine:reports:",
		Timeout:  5 * time.Second,
		PoolSize: 10,
	}
}

// RedisBackend stores reports in Redis. Each report is a JSON string key;
// a sorted set scored by creation time indexes them for listing.
type RedisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisBackend creates a new Redis results backend and checks the
// connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to connect to Redis").
			WithContext("address", cfg.Address)
	}

	return &RedisBackend{cfg: cfg, client: client}, nil
}

// key returns the Redis key for a report ID.
func (b *RedisBackend) key(id string) string {
	return b.cfg.Prefix + id
}

// indexKey returns the key of the sorted set of report IDs.
func (b *RedisBackend) indexKey() string {
	return b.cfg.Prefix + "index"
}

// Save persists a report to Redis.
func (b *RedisBackend) Save(ctx context.Context, r *Report) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to marshal report")
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.key(r.ID), data, b.cfg.TTL)
	pipe.ZAdd(ctx, b.indexKey(), redis.Z{
		Score:  float64(r.CreatedAt.UnixMilli()),
		Member: r.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to save report to Redis").
			WithContext("id", r.ID)
	}
	return nil
}

// Load retrieves a report from Redis.
func (b *RedisBackend) Load(ctx context.Context, id string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.ReportNotFound(id)
		}
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to load report from Redis").
			WithContext("id", id)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to unmarshal report").
			WithContext("id", id)
	}
	return &r, nil
}

// Delete removes a report from Redis.
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.key(id))
	pipe.ZRem(ctx, b.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to delete report").
			WithContext("id", id)
	}
	return nil
}

// List returns all indexed reports, newest first. Index entries whose
// report expired are removed.
func (b *RedisBackend) List(ctx context.Context) ([]*Report, error) {
	ids, err := b.client.ZRevRange(ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to list reports")
	}

	var reports []*Report
	for _, id := range ids {
		r, err := b.Load(ctx, id)
		if err != nil {
			if errors.IsCode(err, errors.CodeReportNotFound) {
				b.client.ZRem(ctx, b.indexKey(), id)
			}
			continue
		}
		reports = append(reports, r)
	}
	sortNewestFirst(reports)
	return reports, nil
}

// Name returns "redis".
func (b *RedisBackend) Name() string {
	return "redis"
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
