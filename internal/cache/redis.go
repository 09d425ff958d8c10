package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/any-hub/image-hub/internal/transform"
)

const (
	redisKeyPrefix   = "image-hub:render:"
	redisFieldMIME   = "mime"
	redisFieldBody   = "body"
	redisDialTimeout = 3 * time.Second
)

func init() {
	MustRegister(BackendRedis, func(opts Options) (Backend, error) {
		if opts.RedisURL == "" {
			return nil, errors.New("redis cache requires a redis url")
		}
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)

		ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisBackend(client, opts.TTL)
	})
}

// RedisBackend 把条目保存为 hash（mime + body），并在同一个 MULTI 中设置 EXPIRE。
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend 使用已建立的 client 构造后端，Close 时会关闭 client。
func NewRedisBackend(client *redis.Client, ttl time.Duration) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("redis cache ttl must be positive, got %s", ttl)
	}
	return &RedisBackend{client: client, ttl: ttl}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (transform.Artifact, bool, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return transform.Artifact{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	mime, hasMIME := fields[redisFieldMIME]
	body, hasBody := fields[redisFieldBody]
	if !hasMIME || !hasBody {
		return transform.Artifact{}, false, nil
	}
	return transform.Artifact{Body: []byte(body), MIMEType: mime}, true, nil
}

// Set 仅在 key 不存在时写入，保证过期时间从首次写入开始计算。
// 存在性检查与写入在同一个 WATCH 事务中完成，多个进程同时未命中时只有一个写入生效。
func (r *RedisBackend) Set(ctx context.Context, key string, artifact transform.Artifact) error {
	fullKey := redisKeyPrefix + key
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, fullKey).Result()
		if err != nil {
			return fmt.Errorf("redis exists: %w", err)
		}
		if exists > 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, fullKey, redisFieldMIME, artifact.MIMEType, redisFieldBody, artifact.Body)
			pipe.Expire(ctx, fullKey, r.ttl)
			return nil
		})
		return err
	}, fullKey)
	if errors.Is(err, redis.TxFailedErr) {
		// 其它进程在 WATCH 之后抢先写入，保留对方的条目与过期时间。
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisBackend) Name() string {
	return BackendRedis
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
