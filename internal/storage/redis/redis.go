package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social_auth/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client redis.UniversalClient
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * NewWithClient оборачивает готовый клиент
func NewWithClient(client redis.UniversalClient) *RedisRepo {
	return &RedisRepo{client: client}
}

// * PutOnce сохраняет значение с TTL атомарно через SETNX.
// Если ключ уже существует, возвращает storage.ErrKeyExists
func (r *RedisRepo) PutOnce(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "storage.redis.PutOnce"

	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return storage.ErrKeyExists
	}

	return nil
}

// * Take читает и удаляет значение одной командой GETDEL, второй вызов вернет storage.ErrKeyNotFound
func (r *RedisRepo) Take(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.redis.Take"

	value, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
