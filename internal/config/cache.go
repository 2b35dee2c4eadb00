package config

import (
	"time"

	"Omerix_API_Informes/internal/informes/engine"
	"Omerix_API_Informes/internal/services"
	"Omerix_API_Informes/pkg/cache"
)

// CacheConfiguration configuración específica del caché
type CacheConfiguration struct {
	Enabled    bool
	DefaultTTL time.Duration
	KeyPrefix  string

	// TTL por dominio
	AISuggestionTTL time.Duration
	SeededTTL       time.Duration
}

func loadCacheConfiguration() CacheConfiguration {
	return CacheConfiguration{
		Enabled:         getEnvAsBool("CACHE_ENABLED", true),
		DefaultTTL:      parseDuration("CACHE_DEFAULT_TTL", "5m"),
		KeyPrefix:       getEnv("CACHE_KEY_PREFIX", "omerix"),
		AISuggestionTTL: parseDuration("AI_SUGGESTION_TTL", "10m"),
		SeededTTL:       parseDuration("TEMPLATES_SEEDED_TTL", "24h"),
	}
}

// GetCacheConfig obtiene la configuración de caché del config principal
func (c *Config) GetCacheConfig() *cache.CacheConfig {
	return &cache.CacheConfig{
		Enabled:    c.Cache.Enabled,
		DefaultTTL: c.Cache.DefaultTTL,
		KeyPrefix:  c.Cache.KeyPrefix,
	}
}

// RetryPolicy política de reintentos del motor de ejecución
func (c *Config) RetryPolicy() engine.RetryPolicy {
	p := engine.DefaultRetryPolicy()
	p.MaxAttempts = c.Informes.RetryMaxAttempts
	p.InitialDelay = c.Informes.RetryInitialDelay
	p.MaxDelay = c.Informes.RetryMaxDelay
	p.BackoffStrategy = engine.BackoffStrategy(c.Informes.RetryBackoff)
	return p
}

// InformeServiceConfig límites del servicio de informes
func (c *Config) InformeServiceConfig() services.InformeServiceConfig {
	return services.InformeServiceConfig{
		DefaultLimit: c.Informes.DefaultLimit,
		MaxLimit:     c.Informes.MaxLimit,
		SeededTTL:    c.Cache.SeededTTL,
	}
}

// AIIntakeConfig límites del servicio de IA
func (c *Config) AIIntakeConfig() services.AIIntakeConfig {
	return services.AIIntakeConfig{
		RateLimitPerMinute: c.AI.RateLimitPerMinute,
		SuggestionTTL:      c.Cache.AISuggestionTTL,
	}
}
