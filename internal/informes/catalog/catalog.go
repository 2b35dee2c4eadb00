// Package catalog es el registro estático de campos consultables por módulo.
//
// El catálogo se construye una única vez al iniciar el proceso y nunca se muta:
// los lectores concurrentes no necesitan sincronización.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Module módulo de negocio expuesto al motor de informes
type Module string

const (
	ModuloVentas    Module = "ventas"
	ModuloCompras   Module = "compras"
	ModuloClientes  Module = "clientes"
	ModuloProductos Module = "productos"
	ModuloTesoreria Module = "tesoreria"
)

// FieldType tipo lógico de un campo del catálogo
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeDate      FieldType = "date"
	TypeBoolean   FieldType = "boolean"
	TypeReference FieldType = "reference"
	TypeEnum      FieldType = "enum"
)

// Operator operador de filtro
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "notEquals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpBetween    Operator = "between"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpIsNull     Operator = "isNull"
	OpIsNotNull  Operator = "isNotNull"
)

// Aggregation función de agregación de un campo seleccionado
type Aggregation string

const (
	AggNone  Aggregation = "none"
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

var (
	ErrModuleNotFound     = errors.New("module not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrFieldNotFound      = errors.New("field not found")
)

// operatorsByType es la única fuente de los operadores permitidos: nunca se eligen por campo.
var operatorsByType = map[FieldType][]Operator{
	TypeString:    {OpEquals, OpNotEquals, OpContains, OpStartsWith, OpIn, OpNotIn, OpIsNull, OpIsNotNull},
	TypeNumber:    {OpEquals, OpNotEquals, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn, OpNotIn, OpIsNull, OpIsNotNull},
	TypeDate:      {OpEquals, OpNotEquals, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpIsNotNull},
	TypeBoolean:   {OpEquals, OpNotEquals, OpIsNull, OpIsNotNull},
	TypeReference: {OpEquals, OpNotEquals, OpIn, OpNotIn, OpIsNull, OpIsNotNull},
	TypeEnum:      {OpEquals, OpNotEquals, OpIn, OpNotIn, OpIsNull, OpIsNotNull},
}

// OperatorsFor devuelve los operadores permitidos para un tipo
func OperatorsFor(t FieldType) []Operator {
	ops := operatorsByType[t]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// IsValidAggregation indica si la agregación pertenece al conjunto conocido
func IsValidAggregation(a Aggregation) bool {
	switch a {
	case AggNone, AggSum, AggAvg, AggCount, AggMin, AggMax:
		return true
	}
	return false
}

// FieldDefinition describe un campo consultable
type FieldDefinition struct {
	Module           Module     `json:"modulo"`
	Collection       string     `json:"coleccion"`
	Path             string     `json:"campo"`
	Label            string     `json:"etiqueta"`
	Type             FieldType  `json:"tipo"`
	Aggregatable     bool       `json:"agregable"`
	AllowedOperators []Operator `json:"operadores"`
	EnumValues       []string   `json:"valores,omitempty"`
}

// Allows indica si el operador está permitido para el campo
func (f *FieldDefinition) Allows(op Operator) bool {
	for _, allowed := range f.AllowedOperators {
		if allowed == op {
			return true
		}
	}
	return false
}

// SupportsAggregation comprueba la compatibilidad entre la agregación y el tipo del campo.
// count vale para cualquier campo agregable; sum/avg solo numéricos; min/max numéricos o fechas.
func (f *FieldDefinition) SupportsAggregation(agg Aggregation) bool {
	if agg == AggNone || agg == "" {
		return true
	}
	if !f.Aggregatable {
		return false
	}
	switch agg {
	case AggCount:
		return true
	case AggSum, AggAvg:
		return f.Type == TypeNumber
	case AggMin, AggMax:
		return f.Type == TypeNumber || f.Type == TypeDate
	}
	return false
}

// HasEnumValue comprueba si el valor pertenece al enumerado
func (f *FieldDefinition) HasEnumValue(v string) bool {
	for _, ev := range f.EnumValues {
		if ev == v {
			return true
		}
	}
	return false
}

type fieldKey struct {
	module     Module
	collection string
	path       string
}

// Catalog registro inmutable de campos
type Catalog struct {
	fields      map[fieldKey]*FieldDefinition
	byModule    map[Module][]*FieldDefinition
	collections map[Module][]string
}

// New construye un catálogo a partir de las definiciones de módulo.
// Falla si (módulo, colección, campo) se repite o si un tipo no es conocido.
func New(modules ...ModuleSpec) (*Catalog, error) {
	c := &Catalog{
		fields:      make(map[fieldKey]*FieldDefinition),
		byModule:    make(map[Module][]*FieldDefinition),
		collections: make(map[Module][]string),
	}

	for _, m := range modules {
		if _, dup := c.collections[m.Module]; dup {
			return nil, fmt.Errorf("module %s declared twice", m.Module)
		}
		c.collections[m.Module] = []string{}

		for _, coll := range m.Collections {
			c.collections[m.Module] = append(c.collections[m.Module], coll.Name)

			for _, fs := range coll.Fields {
				if _, ok := operatorsByType[fs.Type]; !ok {
					return nil, fmt.Errorf("field %s.%s: unknown type %q", coll.Name, fs.Path, fs.Type)
				}
				key := fieldKey{module: m.Module, collection: coll.Name, path: fs.Path}
				if _, dup := c.fields[key]; dup {
					return nil, fmt.Errorf("field %s/%s/%s declared twice", m.Module, coll.Name, fs.Path)
				}
				def := &FieldDefinition{
					Module:           m.Module,
					Collection:       coll.Name,
					Path:             fs.Path,
					Label:            fs.Label,
					Type:             fs.Type,
					Aggregatable:     fs.Aggregatable,
					AllowedOperators: OperatorsFor(fs.Type),
					EnumValues:       fs.EnumValues,
				}
				c.fields[key] = def
				c.byModule[m.Module] = append(c.byModule[m.Module], def)
			}
		}
	}

	return c, nil
}

// Modules devuelve los módulos registrados, ordenados
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.collections))
	for m := range c.collections {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasModule indica si el módulo existe
func (c *Catalog) HasModule(m Module) bool {
	_, ok := c.collections[m]
	return ok
}

// Collections devuelve las colecciones de un módulo
func (c *Catalog) Collections(m Module) []string {
	colls := c.collections[m]
	out := make([]string, len(colls))
	copy(out, colls)
	return out
}

// HasCollection indica si la colección pertenece al módulo
func (c *Catalog) HasCollection(m Module, collection string) bool {
	for _, coll := range c.collections[m] {
		if coll == collection {
			return true
		}
	}
	return false
}

// FieldsFor devuelve una copia de los campos de un módulo en orden de declaración
func (c *Catalog) FieldsFor(m Module) []FieldDefinition {
	defs := c.byModule[m]
	out := make([]FieldDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, *d)
	}
	return out
}

// Resolve busca un campo. El puntero devuelto es de solo lectura.
func (c *Catalog) Resolve(m Module, collection, path string) (*FieldDefinition, error) {
	if !c.HasModule(m) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, m)
	}
	if !c.HasCollection(m, collection) {
		return nil, fmt.Errorf("%w: %s/%s", ErrCollectionNotFound, m, collection)
	}
	def, ok := c.fields[fieldKey{module: m, collection: collection, path: path}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrFieldNotFound, m, collection, path)
	}
	return def, nil
}

var defaultCatalog = mustNew(standardModules()...)

// Default devuelve el catálogo del proceso
func Default() *Catalog {
	return defaultCatalog
}

func mustNew(modules ...ModuleSpec) *Catalog {
	c, err := New(modules...)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}
