// Package validator comprueba definiciones de informe contra el catálogo y
// produce la definición tipada que consume el compilador.
//
// Es el único punto de entrada: las definiciones de usuarios, plantillas e IA
// pasan por Validate sin excepciones.
package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
)

// Validator valida definiciones contra un catálogo inmutable; es seguro para uso concurrente
type Validator struct {
	catalog    *catalog.Catalog
	structural *utils.Validator
}

// New crea un validador sobre el catálogo indicado
func New(c *catalog.Catalog) *Validator {
	return &Validator{
		catalog:    c,
		structural: utils.NewValidator(),
	}
}

// Catalog catálogo usado por el validador
func (v *Validator) Catalog() *catalog.Catalog {
	return v.catalog
}

// report acumula los errores de una validación
type report struct {
	details []utils.ValidationErrorDetail
}

func (r *report) add(field, message string, value interface{}) {
	r.details = append(r.details, utils.ValidationErrorDetail{Field: field, Message: message, Value: value})
}

func (r *report) err() error {
	if len(r.details) == 0 {
		return nil
	}
	return utils.NewValidationErrors(r.details)
}

// ValidateJSON decodifica una definición cruda y la valida. Un documento
// mal formado también se reporta como error de validación.
func (v *Validator) ValidateJSON(raw []byte) (*Definicion, error) {
	var spec models.InformeSpec
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&spec); err != nil {
		field := "definicion"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, utils.NewValidationErrors([]utils.ValidationErrorDetail{
			{Field: field, Message: fmt.Sprintf("malformed definition: %v", err)},
		})
	}
	return v.Validate(spec)
}

// Validate comprueba la definición completa y devuelve todos los errores encontrados.
func (v *Validator) Validate(spec models.InformeSpec) (*Definicion, error) {
	r := &report{}

	if err := v.structural.Validate(spec); err != nil {
		r.details = append(r.details, utils.GetValidationError(err)...)
	}

	norm := spec.Clone()
	def := &Definicion{Modulo: spec.Modulo, Coleccion: spec.ColeccionBase}

	if spec.Modulo != "" && !v.catalog.HasModule(spec.Modulo) {
		r.add("modulo", fmt.Sprintf("unknown module %q", spec.Modulo), spec.Modulo)
		return nil, r.err()
	}
	if spec.ColeccionBase != "" && spec.Modulo != "" && !v.catalog.HasCollection(spec.Modulo, spec.ColeccionBase) {
		r.add("coleccionBase", fmt.Sprintf("collection %q does not belong to module %s", spec.ColeccionBase, spec.Modulo), spec.ColeccionBase)
		return nil, r.err()
	}
	if spec.Modulo == "" || spec.ColeccionBase == "" {
		return nil, r.err()
	}

	v.validateColumns(spec, &norm, def, r)
	v.validateFilters(spec, &norm, def, r)
	validateGrouping(spec, def, r)
	validateSort(spec, def, r)

	if norm.TipoGrafico == "" {
		norm.TipoGrafico = models.TipoGraficoTabla
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	def.Spec = norm
	return def, nil
}

func (v *Validator) resolve(spec models.InformeSpec, coleccion, campo string) (*catalog.FieldDefinition, string) {
	if coleccion != "" && coleccion != spec.ColeccionBase {
		return nil, fmt.Sprintf("field must belong to base collection %s, not %s", spec.ColeccionBase, coleccion)
	}
	f, err := v.catalog.Resolve(spec.Modulo, spec.ColeccionBase, campo)
	if err != nil {
		return nil, fmt.Sprintf("unknown field %q in %s/%s", campo, spec.Modulo, spec.ColeccionBase)
	}
	return f, ""
}

func (v *Validator) validateColumns(spec models.InformeSpec, norm *models.InformeSpec, def *Definicion, r *report) {
	seen := make(map[string]int, len(spec.Campos))

	for i, cs := range spec.Campos {
		path := fmt.Sprintf("campos[%d]", i)
		if cs.Campo == "" {
			continue // ya reportado por la validación estructural
		}

		field, msg := v.resolve(spec, cs.Coleccion, cs.Campo)
		if field == nil {
			r.add(path+".campo", msg, cs.Campo)
			continue
		}

		agg := cs.Agregacion
		if agg == "" {
			agg = catalog.AggNone
		}
		switch {
		case !catalog.IsValidAggregation(agg):
			r.add(path+".agregacion", fmt.Sprintf("unknown aggregation %q", agg), agg)
			continue
		case agg != catalog.AggNone && !field.Aggregatable:
			r.add(path+".agregacion", fmt.Sprintf("field %s is not aggregatable", field.Path), agg)
			continue
		case !field.SupportsAggregation(agg):
			r.add(path+".agregacion", fmt.Sprintf("aggregation %s is not supported for %s fields", agg, field.Type), agg)
			continue
		}

		if cs.Granularidad != models.GranularidadNinguna {
			if field.Type != catalog.TypeDate {
				r.add(path+".granularidad", "granularity only applies to date fields", cs.Granularidad)
				continue
			}
			if agg != catalog.AggNone {
				r.add(path+".granularidad", "granularity only applies to non-aggregated fields", cs.Granularidad)
				continue
			}
		}

		key := cs.Key()
		if prev, dup := seen[key]; dup {
			r.add(path+".alias", fmt.Sprintf("output key %q already used by campos[%d]", key, prev), key)
			continue
		}
		seen[key] = i

		norm.Campos[i].Agregacion = agg
		norm.Campos[i].Coleccion = ""
		def.Columnas = append(def.Columnas, Columna{
			Key:          key,
			Field:        field,
			Agregacion:   agg,
			Granularidad: cs.Granularidad,
		})
	}
}

func (v *Validator) validateFilters(spec models.InformeSpec, norm *models.InformeSpec, def *Definicion, r *report) {
	for i, fs := range spec.Filtros {
		path := fmt.Sprintf("filtros[%d]", i)
		if fs.Campo == "" || fs.Operador == "" {
			continue
		}

		field, msg := v.resolve(spec, fs.Coleccion, fs.Campo)
		if field == nil {
			r.add(path+".campo", msg, fs.Campo)
			continue
		}
		if !field.Allows(fs.Operador) {
			r.add(path+".operador", fmt.Sprintf("operator %s is not allowed for %s field %s", fs.Operador, field.Type, field.Path), fs.Operador)
			continue
		}

		values, ok := coerceValues(field, fs, path, r)
		if !ok {
			continue
		}

		if fs.Operador == catalog.OpBetween && less(values[1], values[0]) {
			values[0], values[1] = values[1], values[0]
			raw := rawValues(fs.Valor, fs.Valores)
			norm.Filtros[i].Valor = nil
			norm.Filtros[i].Valores = []interface{}{raw[1], raw[0]}
		}

		def.Filtros = append(def.Filtros, Filtro{
			Field:              field,
			Operador:           fs.Operador,
			Valores:            finalize(fs.Operador, values),
			SensibleMayusculas: fs.SensibleMayusculas,
		})
		norm.Filtros[i].Coleccion = ""
	}
}

// coerceValues comprueba la aridad del operador y convierte cada valor
func coerceValues(field *catalog.FieldDefinition, fs models.Filtro, path string, r *report) ([]interface{}, bool) {
	raw := rawValues(fs.Valor, fs.Valores)

	switch fs.Operador {
	case catalog.OpIsNull, catalog.OpIsNotNull:
		if len(raw) > 0 {
			r.add(path+".valor", fmt.Sprintf("operator %s takes no value", fs.Operador), fs.Valor)
			return nil, false
		}
		return nil, true
	case catalog.OpBetween:
		if len(raw) != 2 {
			r.add(path+".valores", fmt.Sprintf("operator between requires exactly 2 values, got %d", len(raw)), raw)
			return nil, false
		}
	case catalog.OpIn, catalog.OpNotIn:
		if len(raw) == 0 {
			r.add(path+".valores", fmt.Sprintf("operator %s requires at least 1 value", fs.Operador), nil)
			return nil, false
		}
	default:
		if len(raw) != 1 {
			r.add(path+".valor", fmt.Sprintf("operator %s requires exactly 1 value, got %d", fs.Operador, len(raw)), fs.Valor)
			return nil, false
		}
	}

	out := make([]interface{}, 0, len(raw))
	ok := true
	for j, rv := range raw {
		cv, err := coerce(field, rv)
		if err != nil {
			at := path + ".valor"
			if len(raw) > 1 {
				at = fmt.Sprintf("%s.valores[%d]", path, j)
			}
			r.add(at, err.Error(), rv)
			ok = false
			continue
		}
		out = append(out, cv)
	}
	return out, ok
}

// finalize sustituye las fechas por instantes. Una fecha sin hora cubre el día
// completo: como cota superior (lte, between) y en gt se usa el final del día,
// de modo que lte/gt y lt/gte sigan siendo complementarios.
func finalize(op catalog.Operator, values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		f, isDate := v.(fecha)
		if !isDate {
			out[i] = v
			continue
		}
		upper := (op == catalog.OpBetween && i == 1) || op == catalog.OpLte || op == catalog.OpGt
		if upper && f.dateOnly {
			out[i] = endOfDay(f.t)
		} else {
			out[i] = f.t
		}
	}
	return out
}

// validateGrouping: las claves de agrupación deben ser columnas seleccionadas
// sin agregar, y con agregados o agrupación toda columna sin agregar debe agruparse.
func validateGrouping(spec models.InformeSpec, def *Definicion, r *report) {
	grouped := make(map[string]bool, len(spec.Agrupacion))
	for i, key := range spec.Agrupacion {
		path := fmt.Sprintf("agrupacion[%d]", i)
		if grouped[key] {
			r.add(path, fmt.Sprintf("%q is grouped twice", key), key)
			continue
		}
		col, ok := def.Column(key)
		if !ok {
			if !selectedKey(spec, key) {
				r.add(path, fmt.Sprintf("%q is not a selected field", key), key)
			}
			continue
		}
		if col.Aggregated() {
			r.add(path, fmt.Sprintf("%q is aggregated and cannot be a group key", key), key)
			continue
		}
		grouped[key] = true
		def.GroupBy = append(def.GroupBy, key)
	}

	if !def.Aggregated() && len(spec.Agrupacion) == 0 {
		return
	}
	for i, cs := range spec.Campos {
		col, ok := def.Column(cs.Key())
		if !ok || col.Aggregated() || grouped[col.Key] {
			continue
		}
		r.add(fmt.Sprintf("campos[%d]", i), fmt.Sprintf("%q must be aggregated or included in agrupacion", col.Key), col.Key)
	}
}

// selectedKey distingue una clave inexistente de una columna que ya falló
func selectedKey(spec models.InformeSpec, key string) bool {
	for _, cs := range spec.Campos {
		if cs.Key() == key {
			return true
		}
	}
	return false
}

func validateSort(spec models.InformeSpec, def *Definicion, r *report) {
	for i, o := range spec.Ordenacion {
		if o.Campo == "" {
			continue
		}
		if _, ok := def.Column(o.Campo); !ok {
			if !selectedKey(spec, o.Campo) {
				r.add(fmt.Sprintf("ordenacion[%d].campo", i), fmt.Sprintf("%q is not an output column", o.Campo), o.Campo)
			}
			continue
		}
		def.Orden = append(def.Orden, Orden{Key: o.Campo, Desc: o.Direccion == models.DireccionDesc})
	}
}
