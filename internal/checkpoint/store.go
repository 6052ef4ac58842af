package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendNone   Backend = "none"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

const (
	unsupportedBackendTemplateConstant = "unsupported checkpoint backend %q"
	storeOpenedMessageConstant         = "checkpoint store opened"
	backendFieldNameConstant           = "backend"
)

// ErrUnsupportedBackend indicates an unknown checkpoint.backend value.
var ErrUnsupportedBackend = errors.New("unsupported checkpoint backend")

// Store remembers completed keys.
type Store interface {
	IsCompleted(executionContext context.Context, key string) (bool, error)
	MarkCompleted(executionContext context.Context, key string) error
	Close() error
}

// Configuration selects and configures a backend.
type Configuration struct {
	Backend Backend            `mapstructure:"backend"`
	Redis   RedisConfiguration `mapstructure:"redis"`
}

// RedisConfiguration addresses the Redis server holding checkpoints.
type RedisConfiguration struct {
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Database  int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Open builds the configured store. The none backend, and an empty one, yield a nil Store.
func Open(executionContext context.Context, configuration Configuration, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := Backend(strings.ToLower(strings.TrimSpace(string(configuration.Backend))))
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		logger.Debug(storeOpenedMessageConstant, zap.String(backendFieldNameConstant, string(backend)))
		return NewMemoryStore(), nil
	case BackendRedis:
		store, openError := OpenRedisStore(executionContext, configuration.Redis)
		if openError != nil {
			return nil, openError
		}
		logger.Debug(storeOpenedMessageConstant, zap.String(backendFieldNameConstant, string(backend)))
		return store, nil
	default:
		return nil, fmt.Errorf(unsupportedBackendTemplateConstant+": %w", configuration.Backend, ErrUnsupportedBackend)
	}
}

// MemoryStore keeps completed keys for the lifetime of the process.
type MemoryStore struct {
	mutex     sync.RWMutex
	completed map[string]struct{}
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{completed: make(map[string]struct{})}
}

// IsCompleted reports whether key was marked.
func (store *MemoryStore) IsCompleted(_ context.Context, key string) (bool, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	_, completed := store.completed[key]
	return completed, nil
}

// MarkCompleted records key.
func (store *MemoryStore) MarkCompleted(_ context.Context, key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.completed[key] = struct{}{}
	return nil
}

// Close is a no-op.
func (store *MemoryStore) Close() error {
	return nil
}
