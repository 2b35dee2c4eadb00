package validator

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/utils"
)

func newValidator() *Validator {
	return New(catalog.Default())
}

func facturas(campos ...models.CampoSeleccionado) models.InformeSpec {
	return models.InformeSpec{
		Modulo:        catalog.ModuloVentas,
		ColeccionBase: "facturas",
		Campos:        campos,
	}
}

func requireValidationError(t *testing.T, err error) *utils.ValidationError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, utils.ErrValidationFailed), "expected validation error, got %v", err)
	ve, ok := utils.AsValidationError(err)
	require.True(t, ok)
	return ve
}

func TestValidate_GroupedMonthlyDefinition(t *testing.T) {
	spec := facturas(
		models.CampoSeleccionado{Campo: "fecha", Granularidad: models.GranularidadMes, Alias: "mes"},
		models.CampoSeleccionado{Campo: "totales.totalFactura", Agregacion: catalog.AggSum},
	)
	spec.Agrupacion = []string{"mes"}
	spec.Ordenacion = []models.Orden{{Campo: "mes"}}

	def, err := newValidator().Validate(spec)
	require.NoError(t, err)

	assert.Equal(t, []string{"mes"}, def.GroupBy)
	assert.True(t, def.Grouped())
	require.Len(t, def.Columnas, 2)
	assert.Equal(t, catalog.AggNone, def.Columnas[0].Agregacion)
	assert.Equal(t, catalog.AggSum, def.Columnas[1].Agregacion)
	assert.Equal(t, "totales.totalFactura", def.Columnas[1].Key)
	assert.Equal(t, models.TipoGraficoTabla, def.Spec.TipoGrafico)
	assert.Equal(t, []Orden{{Key: "mes"}}, def.Orden)
}

func TestValidate_ReportsAllErrorsTogether(t *testing.T) {
	spec := facturas(
		models.CampoSeleccionado{Campo: "codigo"},
		models.CampoSeleccionado{Campo: "noExiste"},
	)
	spec.Filtros = []models.Filtro{
		{Campo: "cobrada", Operador: catalog.OpContains, Valor: "x"},
	}

	_, err := newValidator().Validate(spec)
	ve := requireValidationError(t, err)

	assert.True(t, ve.Has("campos[1].campo"), ve.Error())
	assert.True(t, ve.Has("filtros[0].operador"), ve.Error())
	assert.Len(t, ve.Errors, 2)
}

func TestValidate_MissingFields(t *testing.T) {
	_, err := newValidator().Validate(facturas())
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has("campos"), ve.Error())
}

func TestValidate_ModuleAndCollection(t *testing.T) {
	tests := []struct {
		name  string
		spec  models.InformeSpec
		field string
	}{
		{
			name:  "unknown module",
			spec:  models.InformeSpec{Modulo: "rrhh", ColeccionBase: "empleados", Campos: []models.CampoSeleccionado{{Campo: "nombre"}}},
			field: "modulo",
		},
		{
			name:  "collection of another module",
			spec:  models.InformeSpec{Modulo: catalog.ModuloVentas, ColeccionBase: "clientes", Campos: []models.CampoSeleccionado{{Campo: "nombre"}}},
			field: "coleccionBase",
		},
		{
			name:  "field from another collection",
			spec:  facturas(models.CampoSeleccionado{Campo: "fechaEntrega", Coleccion: "pedidos"}),
			field: "campos[0].campo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newValidator().Validate(tt.spec)
			ve := requireValidationError(t, err)
			assert.True(t, ve.Has(tt.field), ve.Error())
		})
	}
}

func TestValidate_GroupingRule(t *testing.T) {
	tests := []struct {
		name       string
		campos     []models.CampoSeleccionado
		agrupacion []string
		field      string
	}{
		{
			name:   "plain column next to aggregate",
			campos: []models.CampoSeleccionado{{Campo: "clienteNombre"}, {Campo: "totales.totalFactura", Agregacion: catalog.AggSum}},
			field:  "campos[0]",
		},
		{
			name:       "group key not selected",
			campos:     []models.CampoSeleccionado{{Campo: "totales.totalFactura", Agregacion: catalog.AggSum}},
			agrupacion: []string{"clienteNombre"},
			field:      "agrupacion[0]",
		},
		{
			name:       "aggregated group key",
			campos:     []models.CampoSeleccionado{{Campo: "clienteNombre"}, {Campo: "totales.totalFactura", Agregacion: catalog.AggSum}},
			agrupacion: []string{"clienteNombre", "totales.totalFactura"},
			field:      "agrupacion[1]",
		},
		{
			name:       "grouping leaves a plain column out",
			campos:     []models.CampoSeleccionado{{Campo: "clienteNombre"}, {Campo: "estado"}},
			agrupacion: []string{"estado"},
			field:      "campos[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := facturas(tt.campos...)
			spec.Agrupacion = tt.agrupacion

			_, err := newValidator().Validate(spec)
			ve := requireValidationError(t, err)
			assert.True(t, ve.Has(tt.field), ve.Error())
		})
	}
}

func TestValidate_ColumnRules(t *testing.T) {
	tests := []struct {
		name  string
		spec  models.InformeSpec
		field string
	}{
		{
			name:  "sum over text",
			spec:  facturas(models.CampoSeleccionado{Campo: "clienteNombre", Agregacion: catalog.AggSum}),
			field: "campos[0].agregacion",
		},
		{
			name:  "unknown aggregation",
			spec:  facturas(models.CampoSeleccionado{Campo: "totales.totalFactura", Agregacion: "median"}),
			field: "campos[0].agregacion",
		},
		{
			name:  "granularity on number",
			spec:  facturas(models.CampoSeleccionado{Campo: "totales.totalFactura", Granularidad: models.GranularidadMes}),
			field: "campos[0].granularidad",
		},
		{
			name: "duplicate output key",
			spec: facturas(
				models.CampoSeleccionado{Campo: "codigo"},
				models.CampoSeleccionado{Campo: "serie", Alias: "codigo"},
			),
			field: "campos[1].alias",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newValidator().Validate(tt.spec)
			ve := requireValidationError(t, err)
			assert.True(t, ve.Has(tt.field), ve.Error())
		})
	}
}

func TestValidate_SortMustReferenceOutputKey(t *testing.T) {
	spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
	spec.Ordenacion = []models.Orden{{Campo: "fecha", Direccion: models.DireccionDesc}}

	_, err := newValidator().Validate(spec)
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has("ordenacion[0].campo"), ve.Error())
}

func TestValidate_FilterArity(t *testing.T) {
	tests := []struct {
		name   string
		filtro models.Filtro
		field  string
	}{
		{name: "in without values", filtro: models.Filtro{Campo: "estado", Operador: catalog.OpIn}, field: "filtros[0].valores"},
		{name: "isNull with value", filtro: models.Filtro{Campo: "clienteNombre", Operador: catalog.OpIsNull, Valor: "x"}, field: "filtros[0].valor"},
		{name: "equals with two values", filtro: models.Filtro{Campo: "codigo", Operador: catalog.OpEquals, Valores: []interface{}{"a", "b"}}, field: "filtros[0].valor"},
		{name: "between with one value", filtro: models.Filtro{Campo: "fecha", Operador: catalog.OpBetween, Valores: []interface{}{"2024-01-01"}}, field: "filtros[0].valores"},
		{name: "enum value outside set", filtro: models.Filtro{Campo: "estado", Operador: catalog.OpEquals, Valor: "pagada"}, field: "filtros[0].valor"},
		{name: "bad date", filtro: models.Filtro{Campo: "fecha", Operador: catalog.OpGt, Valor: "31/01/2024"}, field: "filtros[0].valor"},
		{name: "bad reference in list", filtro: models.Filtro{Campo: "clienteId", Operador: catalog.OpIn, Valores: []interface{}{primitive.NewObjectID().Hex(), "zzz"}}, field: "filtros[0].valores[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
			spec.Filtros = []models.Filtro{tt.filtro}

			_, err := newValidator().Validate(spec)
			ve := requireValidationError(t, err)
			assert.True(t, ve.Has(tt.field), ve.Error())
		})
	}
}

func TestValidate_BetweenIsNormalized(t *testing.T) {
	spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
	spec.Filtros = []models.Filtro{
		{Campo: "totales.totalFactura", Operador: catalog.OpBetween, Valores: []interface{}{500, "100"}},
	}

	def, err := newValidator().Validate(spec)
	require.NoError(t, err)

	require.Len(t, def.Filtros, 1)
	assert.Equal(t, []interface{}{100.0, 500.0}, def.Filtros[0].Valores)
	assert.Equal(t, []interface{}{"100", 500}, def.Spec.Filtros[0].Valores)
	// la definición de entrada no se modifica
	assert.Equal(t, []interface{}{500, "100"}, spec.Filtros[0].Valores)
}

func TestValidate_DateOnlyUpperBoundCoversWholeDay(t *testing.T) {
	spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
	spec.Filtros = []models.Filtro{
		{Campo: "fecha", Operador: catalog.OpBetween, Valores: []interface{}{"2024-01-31", "2024-01-01"}},
		{Campo: "fechaVencimiento", Operador: catalog.OpLte, Valor: "2024-02-29"},
		{Campo: "fecha", Operador: catalog.OpGte, Valor: "2024-01-01T10:00:00Z"},
	}

	def, err := newValidator().Validate(spec)
	require.NoError(t, err)
	require.Len(t, def.Filtros, 3)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	assert.Equal(t, []interface{}{start, end}, def.Filtros[0].Valores)
	assert.Equal(t, []interface{}{time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC)}, def.Filtros[1].Valores)
	assert.Equal(t, []interface{}{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}, def.Filtros[2].Valores)
}

func TestValidate_DateOnlyGtStartsAfterTheDay(t *testing.T) {
	spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
	spec.Filtros = []models.Filtro{
		{Campo: "fecha", Operador: catalog.OpGt, Valor: "2024-01-01"},
		{Campo: "fecha", Operador: catalog.OpLt, Valor: "2024-01-01"},
	}

	def, err := newValidator().Validate(spec)
	require.NoError(t, err)
	require.Len(t, def.Filtros, 2)

	assert.Equal(t, []interface{}{time.Date(2024, 1, 1, 23, 59, 59, int(999*time.Millisecond), time.UTC)}, def.Filtros[0].Valores)
	assert.Equal(t, []interface{}{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, def.Filtros[1].Valores)
}

func TestValidate_RejectsNonFiniteNumbers(t *testing.T) {
	for _, raw := range []interface{}{"NaN", "Inf", "-Infinity", math.Inf(1)} {
		t.Run(fmt.Sprint(raw), func(t *testing.T) {
			spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
			spec.Filtros = []models.Filtro{{Campo: "totales.totalFactura", Operador: catalog.OpGt, Valor: raw}}

			_, err := newValidator().Validate(spec)
			ve := requireValidationError(t, err)
			assert.True(t, ve.Has("filtros[0].valor"), "%v", ve.Errors)
		})
	}
}

func TestValidate_CoercesValues(t *testing.T) {
	clienteID := primitive.NewObjectID()
	spec := facturas(models.CampoSeleccionado{Campo: "codigo"})
	spec.Filtros = []models.Filtro{
		{Campo: "totales.totalFactura", Operador: catalog.OpGt, Valor: "1000"},
		{Campo: "cobrada", Operador: catalog.OpEquals, Valor: "true"},
		{Campo: "clienteId", Operador: catalog.OpEquals, Valor: clienteID.Hex()},
		{Campo: "estado", Operador: catalog.OpIn, Valor: []interface{}{"emitida", "vencida"}},
		{Campo: "clienteNombre", Operador: catalog.OpIsNotNull},
	}

	def, err := newValidator().Validate(spec)
	require.NoError(t, err)
	require.Len(t, def.Filtros, 5)

	assert.Equal(t, []interface{}{1000.0}, def.Filtros[0].Valores)
	assert.Equal(t, []interface{}{true}, def.Filtros[1].Valores)
	assert.Equal(t, []interface{}{clienteID}, def.Filtros[2].Valores)
	assert.Equal(t, []interface{}{"emitida", "vencida"}, def.Filtros[3].Valores)
	assert.Empty(t, def.Filtros[4].Valores)
}

func TestValidateJSON(t *testing.T) {
	v := newValidator()

	t.Run("valid", func(t *testing.T) {
		def, err := v.ValidateJSON([]byte(`{
			"modulo": "clientes",
			"coleccionBase": "clientes",
			"campos": [{"campo": "direccion.provincia"}, {"campo": "_id", "agregacion": "count", "alias": "n"}],
			"agrupacion": ["direccion.provincia"],
			"filtros": [{"campo": "activo", "operador": "equals", "valor": true}]
		}`))
		require.NoError(t, err)
		assert.Equal(t, catalog.ModuloClientes, def.Modulo)
		assert.Equal(t, []string{"direccion.provincia"}, def.GroupBy)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.ValidateJSON([]byte(`{"modulo": "ventas",`))
		ve := requireValidationError(t, err)
		assert.True(t, ve.Has("definicion"), ve.Error())
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := v.ValidateJSON([]byte(`{"modulo": "ventas", "coleccionBase": "facturas", "campos": "codigo"}`))
		ve := requireValidationError(t, err)
		assert.True(t, ve.Has("campos"), ve.Error())
	})
}
