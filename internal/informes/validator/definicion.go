package validator

import (
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
)

// Columna columna de salida con su campo ya resuelto en el catálogo
type Columna struct {
	Key          string
	Field        *catalog.FieldDefinition
	Agregacion   catalog.Aggregation
	Granularidad models.Granularidad
}

// Aggregated indica si la columna es un acumulador
func (c Columna) Aggregated() bool {
	return c.Agregacion != catalog.AggNone
}

// Filtro cláusula normalizada: valores tipados y, en between, ordenados
type Filtro struct {
	Field              *catalog.FieldDefinition
	Operador           catalog.Operator
	Valores            []interface{}
	SensibleMayusculas bool
}

// Orden criterio de ordenación sobre una clave de salida
type Orden struct {
	Key  string
	Desc bool
}

// Definicion definición validada. Es el único tipo que acepta el compilador:
// no existe forma de obtenerla sin pasar por Validate.
type Definicion struct {
	Modulo    catalog.Module
	Coleccion string
	Columnas  []Columna
	Filtros   []Filtro
	GroupBy   []string
	Orden     []Orden

	// Spec es la forma persistible de la definición normalizada
	Spec models.InformeSpec
}

// Aggregated indica si alguna columna está agregada
func (d *Definicion) Aggregated() bool {
	for _, c := range d.Columnas {
		if c.Aggregated() {
			return true
		}
	}
	return false
}

// Grouped indica si las filas de salida son grupos
func (d *Definicion) Grouped() bool {
	return len(d.GroupBy) > 0 || d.Aggregated()
}

// Column busca una columna por su clave de salida
func (d *Definicion) Column(key string) (Columna, bool) {
	for _, c := range d.Columnas {
		if c.Key == key {
			return c, true
		}
	}
	return Columna{}, false
}

// Columns metadatos de columnas para el renderizador
func (d *Definicion) Columns() []models.Columna {
	out := make([]models.Columna, 0, len(d.Columnas))
	for _, c := range d.Columnas {
		out = append(out, models.Columna{
			Key:          c.Key,
			Campo:        c.Field.Path,
			Etiqueta:     c.Field.Label,
			Tipo:         c.Field.Type,
			Agregacion:   c.Agregacion,
			Granularidad: c.Granularidad,
		})
	}
	return out
}
