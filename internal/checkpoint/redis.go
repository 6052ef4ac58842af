package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefixConstant     = "socialmigrate"
	completedKeySegmentConstant  = ":completed:"
	completedValueConstant       = "1"
	pingFailedTemplateConstant   = "checkpoint redis ping %s: %w"
	existsFailedTemplateConstant = "checkpoint lookup %s: %w"
	markFailedTemplateConstant   = "checkpoint mark %s: %w"
)

// ErrMissingRedisAddress indicates the redis backend was selected without checkpoint.redis.address.
var ErrMissingRedisAddress = errors.New("checkpoint.redis.address is required for the redis backend")

// RedisCommands is the subset of the go-redis client the store uses.
type RedisCommands interface {
	Exists(executionContext context.Context, keys ...string) *redis.IntCmd
	Set(executionContext context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps completed keys in Redis so they survive between runs.
type RedisStore struct {
	commands  RedisCommands
	closer    func() error
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore wraps commands. An empty prefix uses "socialmigrate"; a zero ttl keeps keys forever.
func NewRedisStore(commands RedisCommands, keyPrefix string, ttl time.Duration) *RedisStore {
	if len(strings.TrimSpace(keyPrefix)) == 0 {
		keyPrefix = defaultKeyPrefixConstant
	}
	return &RedisStore{commands: commands, keyPrefix: keyPrefix, ttl: ttl}
}

// OpenRedisStore connects to the configured server and verifies it answers.
func OpenRedisStore(executionContext context.Context, configuration RedisConfiguration) (*RedisStore, error) {
	if len(strings.TrimSpace(configuration.Address)) == 0 {
		return nil, ErrMissingRedisAddress
	}
	client := redis.NewClient(&redis.Options{
		Addr:     configuration.Address,
		Username: configuration.Username,
		Password: configuration.Password,
		DB:       configuration.Database,
	})
	if pingError := client.Ping(executionContext).Err(); pingError != nil {
		_ = client.Close()
		return nil, fmt.Errorf(pingFailedTemplateConstant, configuration.Address, pingError)
	}
	store := NewRedisStore(client, configuration.KeyPrefix, configuration.TTL)
	store.closer = client.Close
	return store, nil
}

// Key returns the Redis key recording key as completed.
func (store *RedisStore) Key(key string) string {
	return store.keyPrefix + completedKeySegmentConstant + key
}

// IsCompleted reports whether key was marked.
func (store *RedisStore) IsCompleted(executionContext context.Context, key string) (bool, error) {
	existing, existsError := store.commands.Exists(executionContext, store.Key(key)).Result()
	if existsError != nil {
		return false, fmt.Errorf(existsFailedTemplateConstant, key, existsError)
	}
	return existing > 0, nil
}

// MarkCompleted records key, expiring it after the configured ttl.
func (store *RedisStore) MarkCompleted(executionContext context.Context, key string) error {
	if setError := store.commands.Set(executionContext, store.Key(key), completedValueConstant, store.ttl).Err(); setError != nil {
		return fmt.Errorf(markFailedTemplateConstant, key, setError)
	}
	return nil
}

// Close releases the connection pool when the store owns one.
func (store *RedisStore) Close() error {
	if store.closer == nil {
		return nil
	}
	return store.closer()
}
