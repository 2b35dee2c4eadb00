// Package compiler traduce una definición validada a planes de etapas
// independientes del motor de base de datos.
package compiler

import (
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/validator"
	"Omerix_API_Informes/internal/models"
)

// IDField identidad del documento, desempate de los planes sin agrupar
const IDField = "_id"

// Plan los tres planes de una ejecución, compilados de la misma definición
type Plan struct {
	Coleccion string

	// Rows produce la página solicitada
	Rows []Stage
	// Totals produce una fila con los agregados sobre todo el conjunto filtrado.
	// Es nil cuando la definición no tiene columnas agregadas.
	Totals []Stage
	// Count produce el conjunto cuyo tamaño es pagination.total
	Count []Stage

	Page     int
	Limit    int
	Columnas []models.Columna

	// Accumulators columnas agregadas, para completar los totales vacíos
	Accumulators []Accumulator
}

// Compile compila la definición. page y limit se ajustan a un mínimo de 1.
func Compile(def *validator.Definicion, page, limit int) *Plan {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	match := compileMatch(def)
	accs := accumulators(def)

	plan := &Plan{
		Coleccion:    def.Coleccion,
		Page:         page,
		Limit:        limit,
		Columnas:     def.Columns(),
		Accumulators: accs,
	}

	paginate := Paginate{Skip: (page - 1) * limit, Limit: limit}

	if def.Grouped() {
		group := Group{Keys: groupKeys(def), Accumulators: accs}
		plan.Rows = stages(match, group, groupedSort(def, group), paginate)
		plan.Count = stages(match, Group{Keys: group.Keys})
	} else {
		plan.Rows = stages(match, plainSort(def), paginate, project(def))
		plan.Count = stages(match)
	}

	if len(accs) > 0 {
		plan.Totals = stages(match, Group{Accumulators: accs})
	}

	return plan
}

// stages omite un Match vacío
func stages(match Match, rest ...Stage) []Stage {
	out := make([]Stage, 0, len(rest)+1)
	if len(match.Predicates) > 0 {
		out = append(out, match)
	}
	return append(out, rest...)
}

func compileMatch(def *validator.Definicion) Match {
	m := Match{Predicates: make([]Predicate, 0, len(def.Filtros))}
	for _, f := range def.Filtros {
		values := make([]interface{}, len(f.Valores))
		copy(values, f.Valores)
		m.Predicates = append(m.Predicates, Predicate{
			Path:          f.Field.Path,
			Type:          f.Field.Type,
			Operator:      f.Operador,
			Values:        values,
			CaseSensitive: f.SensibleMayusculas,
		})
	}
	return m
}

func accumulators(def *validator.Definicion) []Accumulator {
	var out []Accumulator
	for _, c := range def.Columnas {
		if !c.Aggregated() {
			continue
		}
		out = append(out, Accumulator{Key: c.Key, Path: c.Field.Path, Func: c.Agregacion})
	}
	return out
}

func groupKeys(def *validator.Definicion) []GroupKey {
	keys := make([]GroupKey, 0, len(def.GroupBy))
	for _, key := range def.GroupBy {
		c, _ := def.Column(key)
		keys = append(keys, GroupKey{Key: c.Key, Path: c.Field.Path, Granularity: c.Granularidad})
	}
	return keys
}

// groupedSort ordena sobre las claves de salida y desempata por las claves de grupo
func groupedSort(def *validator.Definicion, group Group) Sort {
	s := Sort{}
	used := make(map[string]bool)
	for _, o := range def.Orden {
		if used[o.Key] {
			continue
		}
		used[o.Key] = true
		s.Keys = append(s.Keys, SortKey{Field: o.Key, Desc: o.Desc})
	}
	for _, k := range group.Keys {
		if !used[k.Key] {
			used[k.Key] = true
			s.Keys = append(s.Keys, SortKey{Field: k.Key})
		}
	}
	return s
}

// plainSort ordena documentos antes de proyectar, por lo que usa rutas y
// desempata por la identidad del documento
func plainSort(def *validator.Definicion) Sort {
	s := Sort{}
	used := make(map[string]bool)
	for _, o := range def.Orden {
		c, _ := def.Column(o.Key)
		if used[c.Field.Path] {
			continue
		}
		used[c.Field.Path] = true
		s.Keys = append(s.Keys, SortKey{Field: c.Field.Path, Desc: o.Desc})
	}
	if !used[IDField] {
		s.Keys = append(s.Keys, SortKey{Field: IDField})
	}
	return s
}

func project(def *validator.Definicion) Project {
	p := Project{Columns: make([]ProjectColumn, 0, len(def.Columnas))}
	for _, c := range def.Columnas {
		p.Columns = append(p.Columns, ProjectColumn{Key: c.Key, Path: c.Field.Path, Granularity: c.Granularidad})
	}
	return p
}

// IdentityTotals valores de los totales sobre un conjunto vacío
func IdentityTotals(accs []Accumulator) map[string]interface{} {
	out := make(map[string]interface{}, len(accs))
	for _, a := range accs {
		out[a.Key] = Identity(a.Func)
	}
	return out
}

// Identity valor de un acumulador sin documentos: 0 para sum y count, nil para el resto
func Identity(fn catalog.Aggregation) interface{} {
	switch fn {
	case catalog.AggSum:
		return float64(0)
	case catalog.AggCount:
		return int64(0)
	}
	return nil
}
