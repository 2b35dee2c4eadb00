// pkg/cache/redis_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisCacheService implementa CacheService usando Redis
type redisCacheService struct {
	client *redis.Client
	config *CacheConfig
	logger *zap.Logger
}

// NewRedisCacheService crea una nueva instancia del servicio de caché Redis
func NewRedisCacheService(client *redis.Client, config *CacheConfig, logger *zap.Logger) CacheService {
	return &redisCacheService{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "redis_cache")),
	}
}

func (r *redisCacheService) key(k string) string {
	return r.config.KeyPrefix + k
}

func (r *redisCacheService) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return r.config.DefaultTTL
	}
	return ttl
}

// Get obtiene un valor del caché
func (r *redisCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !r.config.Enabled {
		return ErrCacheDisabled
	}

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &CacheError{Type: ErrKeyNotFound.Type, Message: "key not found", Key: key}
		}
		r.logger.Error("Cache get error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Error("Cache unmarshal error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return nil
}

// Set almacena un valor en el caché
func (r *redisCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !r.config.Enabled {
		return ErrCacheDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	if err := r.client.Set(ctx, r.key(key), data, r.ttl(ttl)).Err(); err != nil {
		r.logger.Error("Cache set error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", r.ttl(ttl)))
	return nil
}

// Delete elimina una clave del caché
func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	if !r.config.Enabled {
		return ErrCacheDisabled
	}

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Cache delete error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Exists verifica si una clave existe en el caché
func (r *redisCacheService) Exists(ctx context.Context, key string) bool {
	if !r.config.Enabled {
		return false
	}
	return r.client.Exists(ctx, r.key(key)).Val() > 0
}

// Ping verifica la conexión con Redis
func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close cierra la conexión
func (r *redisCacheService) Close() error {
	return r.client.Close()
}

// noopCacheService se usa cuando Redis no está configurado: toda lectura falla
type noopCacheService struct{}

// NewNoopCacheService caché deshabilitado
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) Get(context.Context, string, interface{}) error { return ErrCacheDisabled }
func (noopCacheService) Set(context.Context, string, interface{}, time.Duration) error {
	return ErrCacheDisabled
}
func (noopCacheService) Delete(context.Context, string) error { return ErrCacheDisabled }
func (noopCacheService) Exists(context.Context, string) bool  { return false }
func (noopCacheService) Ping(context.Context) error           { return nil }
func (noopCacheService) Close() error                         { return nil }
