// pkg/cache/interfaces.go
package cache

import (
	"context"
	"time"
)

// CacheService define la interfaz de caché usada por los servicios de informes
type CacheService interface {
	// Get decodifica en dest el valor JSON almacenado
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig configuración del sistema de caché
type CacheConfig struct {
	Enabled    bool          `json:"enabled"`
	DefaultTTL time.Duration `json:"default_ttl"`
	KeyPrefix  string        `json:"key_prefix"`
}

// CacheError tipos de errores del caché
type CacheError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return e.Type + ": " + e.Message + " (key: " + e.Key + ")"
	}
	return e.Type + ": " + e.Message
}

// Is compara por tipo, de modo que errors.Is(err, ErrKeyNotFound) funcione con la clave rellena
func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	return ok && t.Type == e.Type
}

// Errores predefinidos
var (
	ErrCacheDisabled = &CacheError{Type: "CACHE_DISABLED", Message: "cache service is disabled"}
	ErrKeyNotFound   = &CacheError{Type: "KEY_NOT_FOUND", Message: "key not found in cache"}
	ErrInvalidValue  = &CacheError{Type: "INVALID_VALUE", Message: "value cannot be serialized"}
)

// Prefijos de caché organizados por dominio
const (
	PrefixIA         = "informes_ia"
	PrefixPlantillas = "informes_plantillas"
)

// CacheKeyBuilder helper para construir claves de caché consistentes
type CacheKeyBuilder struct {
	prefix    string
	separator string
}

func NewCacheKeyBuilder(prefix string) *CacheKeyBuilder {
	return &CacheKeyBuilder{
		prefix:    prefix,
		separator: ":",
	}
}

func (kb *CacheKeyBuilder) Build(parts ...string) string {
	key := kb.prefix
	for _, part := range parts {
		if part != "" {
			key += kb.separator + part
		}
	}
	return key
}

// Helpers para construcción de claves comunes
var (
	IAKeys         = NewCacheKeyBuilder(PrefixIA)
	PlantillasKeys = NewCacheKeyBuilder(PrefixPlantillas)
)
