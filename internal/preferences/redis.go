package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "plantaid:"
	redisStringsKey  = redisKeyPrefix + "preferences"
	redisCapturedKey = redisKeyPrefix + "capturedAt"
	redisSetPrefix   = redisKeyPrefix + "set:"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis. connectionString is either a redis:// URL or a host:port address.
func NewRedisStore(connectionString string) (*RedisStore, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("redis connection string must not be empty")
	}

	options, err := redis.ParseURL(connectionString)
	if err != nil {
		options = &redis.Options{Addr: connectionString}
	}

	return &RedisStore{client: redis.NewClient(options)}, nil
}

func redisSetKey(key string) string {
	return redisSetPrefix + key
}

func (s *RedisStore) GetString(ctx context.Context, key, defaultValue string) (string, error) {
	value, err := s.client.HGet(ctx, redisStringsKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return defaultValue, nil
	}
	if err != nil {
		return defaultValue, err
	}
	return value, nil
}

func (s *RedisStore) GetStringSet(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, redisSetKey(key)).Result()
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

func (s *RedisStore) RecordAnalysis(ctx context.Context, record Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, redisSetKey(ImagePathsKey), record.ImagePath)
		pipe.HSet(ctx, redisStringsKey, record.ImagePath, record.ResultPath)
		pipe.HSet(ctx, redisCapturedKey, record.ImagePath, strconv.FormatInt(record.CapturedAt.UnixNano(), 10))
		return nil
	})
	return err
}

func (s *RedisStore) Records(ctx context.Context) ([]Record, error) {
	paths, err := s.GetStringSet(ctx, ImagePathsKey)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(paths))
	if len(paths) == 0 {
		return records, nil
	}

	resultPaths, err := s.client.HMGet(ctx, redisStringsKey, paths...).Result()
	if err != nil {
		return nil, err
	}
	capturedAt, err := s.client.HMGet(ctx, redisCapturedKey, paths...).Result()
	if err != nil {
		return nil, err
	}

	for i, path := range paths {
		record := Record{ImagePath: path}
		if value, ok := resultPaths[i].(string); ok {
			record.ResultPath = value
		}
		if value, ok := capturedAt[i].(string); ok {
			if unixNano, err := strconv.ParseInt(value, 10, 64); err == nil && unixNano != 0 {
				record.CapturedAt = time.Unix(0, unixNano)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisStore) DeleteRecord(ctx context.Context, imagePath string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, redisSetKey(ImagePathsKey), imagePath)
		pipe.HDel(ctx, redisStringsKey, imagePath)
		pipe.HDel(ctx, redisCapturedKey, imagePath)
		return nil
	})
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
