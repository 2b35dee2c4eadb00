package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_OperatorsDerivedFromType(t *testing.T) {
	c := Default()

	for _, m := range c.Modules() {
		for _, f := range c.FieldsFor(m) {
			assert.ElementsMatch(t, OperatorsFor(f.Type), f.AllowedOperators,
				"operators for %s/%s/%s", f.Module, f.Collection, f.Path)
		}
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		module     Module
		collection string
		path       string
		wantErr    error
	}{
		{name: "Nested path", module: ModuloVentas, collection: "facturas", path: "totales.totalFactura"},
		{name: "Unknown module", module: Module("rrhh"), collection: "nominas", path: "importe", wantErr: ErrModuleNotFound},
		{name: "Collection of another module", module: ModuloVentas, collection: "productos", path: "sku", wantErr: ErrCollectionNotFound},
		{name: "Unknown field", module: ModuloVentas, collection: "facturas", path: "inventado", wantErr: ErrFieldNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := c.Resolve(tt.module, tt.collection, tt.path)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, def.Path)
			assert.Equal(t, TypeNumber, def.Type)
			assert.True(t, def.Aggregatable)
		})
	}
}

func TestNew_RejectsDuplicateFields(t *testing.T) {
	_, err := New(ModuleSpec{
		Module: ModuloVentas,
		Collections: []CollectionSpec{{
			Name:   "facturas",
			Fields: []FieldSpec{text("codigo", "Código"), text("codigo", "Otra vez")},
		}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestFieldDefinition_SupportsAggregation(t *testing.T) {
	c := Default()
	total, err := c.Resolve(ModuloVentas, "facturas", "totales.totalFactura")
	require.NoError(t, err)
	nombre, err := c.Resolve(ModuloVentas, "facturas", "clienteNombre")
	require.NoError(t, err)
	id, err := c.Resolve(ModuloVentas, "facturas", "_id")
	require.NoError(t, err)

	assert.True(t, total.SupportsAggregation(AggSum))
	assert.True(t, total.SupportsAggregation(AggMax))
	assert.False(t, nombre.SupportsAggregation(AggCount))
	assert.True(t, nombre.SupportsAggregation(AggNone))
	assert.True(t, id.SupportsAggregation(AggCount))
	assert.False(t, id.SupportsAggregation(AggSum))
}

func TestCatalog_FieldsForReturnsCopies(t *testing.T) {
	c := Default()
	fields := c.FieldsFor(ModuloClientes)
	require.NotEmpty(t, fields)

	fields[0].Label = "modificado"
	assert.NotEqual(t, "modificado", c.FieldsFor(ModuloClientes)[0].Label)
}
