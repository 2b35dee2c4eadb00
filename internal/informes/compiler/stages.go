package compiler

import (
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
)

// Stage etapa abstracta de un plan; cada origen de datos la traduce a su dialecto
type Stage interface {
	stageName() string
}

// Predicate condición sobre una ruta del documento. Values ya está tipado:
// string, float64, bool, time.Time o primitive.ObjectID.
type Predicate struct {
	Path          string
	Type          catalog.FieldType
	Operator      catalog.Operator
	Values        []interface{}
	CaseSensitive bool
}

// Match filtra documentos; los predicados se combinan con AND
type Match struct {
	Predicates []Predicate
}

// GroupKey clave de agrupación. Con Granularity la fecha se trunca y se
// representa como YYYY-MM-DD, YYYY-MM o YYYY.
type GroupKey struct {
	Key         string
	Path        string
	Granularity models.Granularidad
}

// Accumulator acumulador de grupo
type Accumulator struct {
	Key  string
	Path string
	Func catalog.Aggregation
}

// Group agrupa por Keys; sin claves produce una sola fila sobre todo el conjunto.
// Las filas resultantes contienen únicamente las claves de salida.
type Group struct {
	Keys         []GroupKey
	Accumulators []Accumulator
}

// SortKey criterio de orden sobre un campo del registro en ese punto del plan
type SortKey struct {
	Field string
	Desc  bool
}

// Sort ordena de forma estable por Keys
type Sort struct {
	Keys []SortKey
}

// ProjectColumn columna de salida de un plan sin agrupar
type ProjectColumn struct {
	Key         string
	Path        string
	Granularity models.Granularidad
}

// Project reduce cada documento a las columnas de salida
type Project struct {
	Columns []ProjectColumn
}

// Paginate descarta Skip registros y devuelve como mucho Limit
type Paginate struct {
	Skip  int
	Limit int
}

func (Match) stageName() string    { return "match" }
func (Group) stageName() string    { return "group" }
func (Sort) stageName() string     { return "sort" }
func (Project) stageName() string  { return "project" }
func (Paginate) stageName() string { return "paginate" }

// Name nombre legible de la etapa, para logs
func Name(s Stage) string {
	return s.stageName()
}
