// Package datasource define el contrato entre el motor de ejecución y el
// almacenamiento de cada tenant.
package datasource

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/informes/compiler"
)

// Source manejador de datos de un único tenant. El motor lo recibe ya
// autorizado y no puede alcanzar datos de otro tenant a través de él.
type Source interface {
	// Aggregate ejecuta las etapas y devuelve registros planos por clave de salida
	Aggregate(ctx context.Context, coleccion string, stages []compiler.Stage) ([]map[string]interface{}, error)
	// Count ejecuta las etapas y devuelve el número de registros resultantes
	Count(ctx context.Context, coleccion string, stages []compiler.Stage) (int64, error)
}

// Provider entrega el Source de un tenant
type Provider interface {
	ForTenant(ctx context.Context, tenantID primitive.ObjectID) (Source, error)
}

// ErrUnsupportedStage etapa que el origen no sabe traducir
var ErrUnsupportedStage = errors.New("unsupported stage")

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient marca un error como reintentable
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient indica si el error fue marcado como reintentable
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Lookup resuelve una ruta con puntos dentro de un documento anidado
func Lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case primitive.M:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}
