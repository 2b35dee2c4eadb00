package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort      string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Database
	MongoURI            string
	MongoTenantDBPrefix string
	MongoConnectTimeout time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret    string
	JWTIssuer    string
	JWTAccessTTL time.Duration

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Informes
	Informes InformesConfig

	// Servicio de IA
	AI AIConfig

	// Caché
	Cache CacheConfiguration
}

// InformesConfig ejecución y paginación de informes
type InformesConfig struct {
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryBackoff      string
	ExecutionTimeout  time.Duration
	DefaultLimit      int
	MaxLimit          int
}

// AIConfig servicio externo de interpretación de lenguaje natural
type AIConfig struct {
	ServiceURL         string
	ServiceToken       string
	Timeout            time.Duration
	RateLimitPerMinute int
}

func Load() *Config {
	// Cargar archivo .env si existe
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8082"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: parseDuration("SHUTDOWN_TIMEOUT", "15s"),

		MongoURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoTenantDBPrefix: getEnv("MONGODB_TENANT_DB_PREFIX", "omerix_"),
		MongoConnectTimeout: parseDuration("MONGODB_CONNECT_TIMEOUT", "10s"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:    getEnv("JWT_SECRET", generateDefaultJWTSecret()),
		JWTIssuer:    getEnv("JWT_ISSUER", "omerix-api"),
		JWTAccessTTL: parseDuration("JWT_ACCESS_TTL", "15m"),

		CORSAllowedOrigins:   parseStringSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		CORSAllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),

		Informes: InformesConfig{
			RetryMaxAttempts:  getEnvAsInt("INFORMES_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: parseDuration("INFORMES_RETRY_INITIAL_DELAY", "100ms"),
			RetryMaxDelay:     parseDuration("INFORMES_RETRY_MAX_DELAY", "2s"),
			RetryBackoff:      getEnv("INFORMES_RETRY_BACKOFF", "exponential"),
			ExecutionTimeout:  parseDuration("INFORMES_EXECUTION_TIMEOUT", "30s"),
			DefaultLimit:      getEnvAsInt("INFORMES_DEFAULT_LIMIT", 50),
			MaxLimit:          getEnvAsInt("INFORMES_MAX_LIMIT", 1000),
		},

		AI: AIConfig{
			ServiceURL:         getEnv("AI_SERVICE_URL", ""),
			ServiceToken:       getEnv("AI_SERVICE_TOKEN", ""),
			Timeout:            parseDuration("AI_SERVICE_TIMEOUT", "20s"),
			RateLimitPerMinute: getEnvAsInt("AI_RATE_LIMIT_PER_MINUTE", 20),
		},

		Cache: loadCacheConfiguration(),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// Validate valida toda la configuración al cargar
func (c *Config) Validate() error {
	if err := c.ValidateJWT(); err != nil {
		return fmt.Errorf("JWT validation failed: %w", err)
	}
	if err := c.ValidateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := c.ValidateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := c.ValidateRedis(); err != nil {
		return fmt.Errorf("redis validation failed: %w", err)
	}
	if err := c.ValidateInformes(); err != nil {
		return fmt.Errorf("informes validation failed: %w", err)
	}
	if err := c.ValidateAI(); err != nil {
		return fmt.Errorf("AI validation failed: %w", err)
	}
	if err := c.ValidateCORS(); err != nil {
		return fmt.Errorf("CORS validation failed: %w", err)
	}
	return nil
}

// ValidateJWT valida específicamente la configuración JWT
func (c *Config) ValidateJWT() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if entropy := calculateEntropy(c.JWTSecret); entropy < 3.5 {
		return fmt.Errorf("JWT_SECRET has insufficient entropy: %.2f (minimum: 3.5)", entropy)
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > 1*time.Hour {
		return fmt.Errorf("JWT_ACCESS_TTL must be between 0 and 1h, got %v", c.JWTAccessTTL)
	}
	if c.JWTIssuer == "" {
		return fmt.Errorf("JWT_ISSUER cannot be empty")
	}
	return nil
}

// ValidateServer valida la configuración del servidor
func (c *Config) ValidateServer() error {
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, c.Environment) {
		return fmt.Errorf("invalid environment: %s (valid: %v)", c.Environment, validEnvs)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.LogLevel, validLogLevels)
	}
	return nil
}

// ValidateDatabase valida la configuración de MongoDB
func (c *Config) ValidateDatabase() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI cannot be empty")
	}
	if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
		return fmt.Errorf("MONGODB_URI must use the mongodb:// or mongodb+srv:// scheme")
	}
	if c.MongoTenantDBPrefix == "" {
		return fmt.Errorf("MONGODB_TENANT_DB_PREFIX cannot be empty")
	}
	return nil
}

// ValidateRedis valida la configuración de Redis
func (c *Config) ValidateRedis() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST cannot be empty")
	}
	if port, err := strconv.Atoi(c.RedisPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid Redis port: %s", c.RedisPort)
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("invalid Redis DB number: %d (valid: 0-15)", c.RedisDB)
	}
	return nil
}

// ValidateInformes valida reintentos, timeout y límites de paginación
func (c *Config) ValidateInformes() error {
	i := c.Informes
	if i.RetryMaxAttempts < 1 || i.RetryMaxAttempts > 10 {
		return fmt.Errorf("INFORMES_RETRY_MAX_ATTEMPTS must be between 1 and 10, got %d", i.RetryMaxAttempts)
	}
	if i.RetryInitialDelay < 0 || i.RetryMaxDelay < i.RetryInitialDelay {
		return fmt.Errorf("INFORMES_RETRY_MAX_DELAY (%v) must be >= INFORMES_RETRY_INITIAL_DELAY (%v)", i.RetryMaxDelay, i.RetryInitialDelay)
	}
	if !contains([]string{"fixed", "linear", "exponential"}, i.RetryBackoff) {
		return fmt.Errorf("invalid INFORMES_RETRY_BACKOFF: %s", i.RetryBackoff)
	}
	if i.ExecutionTimeout < 0 {
		return fmt.Errorf("INFORMES_EXECUTION_TIMEOUT cannot be negative")
	}
	if i.DefaultLimit < 1 {
		return fmt.Errorf("INFORMES_DEFAULT_LIMIT must be positive, got %d", i.DefaultLimit)
	}
	if i.MaxLimit < i.DefaultLimit {
		return fmt.Errorf("INFORMES_MAX_LIMIT (%d) must be >= INFORMES_DEFAULT_LIMIT (%d)", i.MaxLimit, i.DefaultLimit)
	}
	return nil
}

// ValidateAI valida el servicio de IA; sin URL la generación queda deshabilitada
func (c *Config) ValidateAI() error {
	if c.AI.ServiceURL == "" {
		return nil
	}
	u, err := url.Parse(c.AI.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid AI_SERVICE_URL: %s", c.AI.ServiceURL)
	}
	if c.AI.RateLimitPerMinute < 1 {
		return fmt.Errorf("AI_RATE_LIMIT_PER_MINUTE must be positive, got %d", c.AI.RateLimitPerMinute)
	}
	return nil
}

// ValidateCORS valida la configuración de CORS
func (c *Config) ValidateCORS() error {
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			if c.CORSAllowCredentials {
				return fmt.Errorf("CORS credentials cannot be true when origin is wildcard")
			}
			continue
		}
		if _, err := url.Parse(origin); err != nil {
			return fmt.Errorf("invalid CORS origin format: %s", origin)
		}
	}
	return nil
}

// AIEnabled indica si hay servicio de IA configurado
func (c *Config) AIEnabled() bool {
	return c.AI.ServiceURL != ""
}

// IsProduction retorna si está en ambiente de producción
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

// getEnvAsBool parsea variables de entorno como boolean
func getEnvAsBool(name string, defaultVal bool) bool {
	switch strings.ToLower(getEnv(name, "")) {
	case "true", "1", "yes", "on", "enable", "enabled":
		return true
	case "false", "0", "no", "off", "disable", "disabled":
		return false
	default:
		return defaultVal
	}
}

// parseDuration parsea duraciones de forma segura
func parseDuration(envKey, defaultValue string) time.Duration {
	value := getEnv(envKey, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s (%s), using default: %s", envKey, value, defaultValue)
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

// parseStringSlice parsea una lista separada por comas
func parseStringSlice(envKey, defaultValue string) []string {
	value := getEnv(envKey, defaultValue)
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

// calculateEntropy calcula la entropía de Shannon de una cadena
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]float64)
	for _, char := range s {
		freq[char]++
	}

	entropy := 0.0
	length := float64(len(s))
	for _, count := range freq {
		p := count / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// generateDefaultJWTSecret genera un secret aleatorio; solo válido en desarrollo
func generateDefaultJWTSecret() string {
	log.Println("Warning: Using auto-generated JWT secret. Set JWT_SECRET environment variable in production.")

	bytes := make([]byte, 64)
	if _, err := rand.Read(bytes); err != nil {
		return "DEVELOPMENT_ONLY_CHANGE_IN_PRODUCTION_" + fmt.Sprintf("%d", time.Now().Unix())
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
