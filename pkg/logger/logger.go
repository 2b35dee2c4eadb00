package logger

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wrapper clave/valor sobre zap usado por main y los middlewares HTTP
type Logger struct {
	zap *zap.Logger
}

// New crea el logger según nivel y ambiente
func New(logLevel, environment string) *Logger {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(logLevel))

	zapLogger, err := config.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	return &Logger{zap: zapLogger}
}

// NewFromZap envuelve un *zap.Logger existente (útil en tests con zap.NewNop)
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z}
}

func parseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap devuelve el logger estructurado para servicios y repositorios
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Named logger hijo con el campo component
func (l *Logger) Named(component string) *zap.Logger {
	return l.zap.With(zap.String("component", component))
}

// fields convierte pares clave/valor en campos zap; las claves que no son
// string se descartan junto con su valor
func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	if len(keysAndValues)%2 != 0 {
		out = append(out, zap.Any("extra", keysAndValues[len(keysAndValues)-1]))
	}
	return out
}

// Info log con campos adicionales
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zap.Info(msg, fields(keysAndValues)...)
}

// Error log con campos adicionales
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zap.Error(msg, fields(keysAndValues)...)
}

// Fatal log con campos adicionales
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.zap.Fatal(msg, fields(keysAndValues)...)
}

// Debug log con campos adicionales
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zap.Debug(msg, fields(keysAndValues)...)
}

// Warn log con campos adicionales
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zap.Warn(msg, fields(keysAndValues)...)
}

// Sync sincroniza el logger
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
