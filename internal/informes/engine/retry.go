package engine

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy estrategias de backoff
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy política de reintentos ante errores transitorios del origen de datos.
// MaxAttempts cuenta el primer intento.
type RetryPolicy struct {
	MaxAttempts     int             `json:"max_attempts"`
	InitialDelay    time.Duration   `json:"initial_delay"`
	MaxDelay        time.Duration   `json:"max_delay"`
	BackoffStrategy BackoffStrategy `json:"backoff_strategy"`
	ExponentialBase float64         `json:"exponential_base"`
	// Jitter fracción del delay que se aleatoriza, entre 0 y 1
	Jitter float64 `json:"jitter"`
}

// DefaultRetryPolicy obtiene la política de reintentos por defecto
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffStrategy: BackoffExponential,
		ExponentialBase: 2.0,
		Jitter:          0.1,
	}
}

// Delay calcula la espera antes del reintento número retryCount (desde 0)
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(retryCount+1)
	case BackoffExponential:
		base := p.ExponentialBase
		if base <= 1 {
			base = 2
		}
		delay = time.Duration(float64(p.InitialDelay) * math.Pow(base, float64(retryCount)))
	default:
		delay = p.InitialDelay
	}

	// jitter para que ejecuciones concurrentes no reintenten a la vez
	if p.Jitter > 0 {
		delay += time.Duration(float64(delay) * p.Jitter * (rand.Float64() - 0.5))
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
