package store

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

// redisClient is the part of *redis.Client the store needs
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis keeps the alert document under a single key
type Redis struct {
	client redisClient
	key    string
}

// RedisConfig is the connection setup of a Redis store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedis connects to Redis and checks the connection
func NewRedis(ctx context.Context, c RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "could not connect to redis at %s", c.Addr)
	}

	log.Infof("Alert store connected to redis %s (db %d, key %s)", c.Addr, c.DB, c.Key)
	return &Redis{client: client, key: c.Key}, nil
}

// Load reads every alert, a missing key is an empty store
func (r *Redis) Load(ctx context.Context) ([]types.Alert, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return []types.Alert{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", r.key)
	}
	return decode(data)
}

// Save replaces the whole document with a single SET
func (r *Redis) Save(ctx context.Context, alerts []types.Alert) error {
	data, err := encode(alerts)
	if err != nil {
		return err
	}
	return errors.Wrapf(r.client.Set(ctx, r.key, data, 0).Err(), "could not write %s", r.key)
}

// Close releases the connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
