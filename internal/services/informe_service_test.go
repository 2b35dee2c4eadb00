package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/datasource/memory"
	"Omerix_API_Informes/internal/export"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/engine"
	"Omerix_API_Informes/internal/informes/plantillas"
	"Omerix_API_Informes/internal/informes/validator"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/repository"
	"Omerix_API_Informes/internal/utils"
	"Omerix_API_Informes/pkg/cache"
)

type fixture struct {
	service InformeService
	store   *memStore
	data    *memory.Store
	cache   *mapCache
	actor   models.Actor
}

func newFixture(t *testing.T, config InformeServiceConfig) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(),
		data:  memory.New(),
		cache: newMapCache(),
		actor: models.Actor{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID()},
	}
	f.service = NewInformeService(
		f.store,
		f.data,
		validator.New(catalog.Default()),
		engine.New(zap.NewNop()),
		export.Default(),
		f.cache,
		config,
		zap.NewNop(),
	)
	return f
}

func porEstado() models.InformeSpec {
	return models.InformeSpec{
		Modulo:        catalog.ModuloVentas,
		ColeccionBase: "facturas",
		Campos: []models.CampoSeleccionado{
			{Campo: "estado"},
			{Campo: "totales.totalFactura", Agregacion: catalog.AggSum, Alias: "total"},
		},
		Filtros: []models.Filtro{
			{Campo: "estado", Operador: catalog.OpIn, Valores: []interface{}{"emitida", "cobrada"}},
		},
		Agrupacion: []string{"estado"},
		Ordenacion: []models.Orden{{Campo: "estado"}},
	}
}

func (f *fixture) create(t *testing.T, nombre string) *models.Informe {
	t.Helper()
	inf, err := f.service.Create(context.Background(), f.actor, &models.InformeRequest{Nombre: nombre, InformeSpec: porEstado()})
	require.NoError(t, err)
	return inf
}

func TestCreate_RejectsInvalidDefinition(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	spec := porEstado()
	spec.Campos[1].Agregacion = "median"

	_, err := f.service.Create(context.Background(), f.actor, &models.InformeRequest{Nombre: "Malo", InformeSpec: spec})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrValidationFailed))
	assert.Equal(t, 0, f.store.creates)
}

func TestCreate_RequiresTenant(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})

	_, err := f.service.Create(context.Background(), models.Actor{UserID: primitive.NewObjectID()},
		&models.InformeRequest{Nombre: "Sin tenant", InformeSpec: porEstado()})
	assert.True(t, errors.Is(err, utils.ErrUnauthorized))
}

func TestCreate_StoresNormalizedDefinition(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Por estado")

	assert.False(t, inf.ID.IsZero())
	assert.Equal(t, f.actor.TenantID, inf.TenantID)
	assert.Equal(t, f.actor.UserID, inf.PropietarioID)
	assert.False(t, inf.EsPlantilla)

	got, err := f.service.GetByID(context.Background(), f.actor, inf.ID)
	require.NoError(t, err)
	assert.Equal(t, inf.InformeSpec, got.InformeSpec)
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Privado")

	other := models.Actor{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID()}
	_, err := f.service.GetByID(context.Background(), other, inf.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	err = f.service.Delete(context.Background(), other, inf.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	_, err = f.service.GetByID(context.Background(), f.actor, inf.ID)
	assert.NoError(t, err)
}

func TestDelete_ThenNotFound(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Temporal")

	require.NoError(t, f.service.Delete(context.Background(), f.actor, inf.ID))

	_, err := f.service.GetByID(context.Background(), f.actor, inf.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	_, err = f.service.Execute(context.Background(), f.actor, inf.ID, 1, 10)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.True(t, errors.Is(f.service.Delete(context.Background(), f.actor, inf.ID), utils.ErrNotFound))
}

func TestDuplicate_IsIndependent(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	ctx := context.Background()
	original := f.create(t, "Original")
	_, err := f.service.ToggleFavorite(ctx, f.actor, original.ID)
	require.NoError(t, err)

	other := models.Actor{TenantID: f.actor.TenantID, UserID: primitive.NewObjectID()}
	clone, err := f.service.Duplicate(ctx, other, original.ID, "")
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, "Original (copia)", clone.Nombre)
	assert.False(t, clone.Favorito)
	assert.False(t, clone.EsPlantilla)
	assert.Equal(t, other.UserID, clone.PropietarioID)
	assert.Equal(t, original.InformeSpec, clone.InformeSpec)

	edited := porEstado()
	edited.Ordenacion = []models.Orden{{Campo: "total", Direccion: models.DireccionDesc}}
	_, err = f.service.Update(ctx, f.actor, clone.ID, &models.InformeRequest{Nombre: "Copia editada", InformeSpec: edited})
	require.NoError(t, err)

	reloaded, err := f.service.GetByID(ctx, f.actor, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", reloaded.Nombre)
	assert.Equal(t, []models.Orden{{Campo: "estado"}}, reloaded.Ordenacion)
	assert.True(t, reloaded.Favorito)
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Favorito")

	on, err := f.service.ToggleFavorite(context.Background(), f.actor, inf.ID)
	require.NoError(t, err)
	assert.True(t, on.Favorito)

	off, err := f.service.ToggleFavorite(context.Background(), f.actor, inf.ID)
	require.NoError(t, err)
	assert.False(t, off.Favorito)

	_, err = f.service.ToggleFavorite(context.Background(), f.actor, primitive.NewObjectID())
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestToggleFavorite_ConcurrentTogglesAreNotLost(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Favorito")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ToggleFavorite(context.Background(), f.actor, inf.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.service.GetByID(context.Background(), f.actor, inf.ID)
	require.NoError(t, err)
	assert.False(t, got.Favorito)
}

func TestSeedTemplates_IsIdempotent(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{SeededTTL: time.Hour})
	ctx := context.Background()

	n, err := f.service.SeedTemplates(ctx, f.actor)
	require.NoError(t, err)
	assert.Equal(t, len(plantillas.All()), n)
	assert.True(t, f.cache.Exists(ctx, cache.PlantillasKeys.Build(f.actor.TenantID.Hex())))

	n, err = f.service.SeedTemplates(ctx, f.actor)
	require.NoError(t, err)
	assert.Zero(t, n)

	// sin la marca, el repositorio sigue evitando duplicados
	require.NoError(t, f.cache.Delete(ctx, cache.PlantillasKeys.Build(f.actor.TenantID.Hex())))
	n, err = f.service.SeedTemplates(ctx, f.actor)
	require.NoError(t, err)
	assert.Zero(t, n)

	esPlantilla := true
	list, total, err := f.service.List(ctx, f.actor, repository.InformeFilter{EsPlantilla: &esPlantilla}, repository.PaginationOptions{PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(len(plantillas.All())), total)
	for _, inf := range list {
		assert.True(t, inf.EsPlantilla)
	}
}

func TestUpdate_TemplateIsReadOnly(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	ctx := context.Background()
	_, err := f.service.SeedTemplates(ctx, f.actor)
	require.NoError(t, err)

	esPlantilla := true
	list, _, err := f.service.List(ctx, f.actor, repository.InformeFilter{EsPlantilla: &esPlantilla}, repository.PaginationOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	tpl := list[0]

	_, err = f.service.Update(ctx, f.actor, tpl.ID, &models.InformeRequest{Nombre: "Cambiada", InformeSpec: porEstado()})
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	clone, err := f.service.Duplicate(ctx, f.actor, tpl.ID, "Mi versión")
	require.NoError(t, err)
	assert.Equal(t, "Mi versión", clone.Nombre)
	_, err = f.service.Update(ctx, f.actor, clone.ID, &models.InformeRequest{Nombre: "Mi versión", InformeSpec: porEstado()})
	assert.NoError(t, err)
}

func TestExecute_ClampsLimit(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{DefaultLimit: 5, MaxLimit: 10})
	for i := 0; i < 30; i++ {
		f.data.Insert(f.actor.TenantID, "facturas", map[string]interface{}{
			"codigo": "F", "estado": "emitida", "totales": map[string]interface{}{"totalFactura": 1.0},
		})
	}
	spec := models.InformeSpec{
		Modulo:        catalog.ModuloVentas,
		ColeccionBase: "facturas",
		Campos:        []models.CampoSeleccionado{{Campo: "codigo"}},
	}

	result, err := f.service.ExecuteAdHoc(context.Background(), f.actor, spec, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.Paginacion{Page: 1, Limit: 5, Total: 30, TotalPages: 6}, result.Paginacion)

	result, err = f.service.ExecuteAdHoc(context.Background(), f.actor, spec, 2, 1000)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Paginacion.Limit)
	assert.Len(t, result.Datos, 10)
}

func TestExport_CSVIncludesEveryPage(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{DefaultLimit: 2, MaxLimit: 2})
	for _, estado := range []string{"emitida", "cobrada", "emitida", "anulada"} {
		f.data.Insert(f.actor.TenantID, "facturas", map[string]interface{}{
			"estado": estado, "totales": map[string]interface{}{"totalFactura": 10.0},
		})
	}
	spec := models.InformeSpec{
		Modulo:        catalog.ModuloVentas,
		ColeccionBase: "facturas",
		Campos:        []models.CampoSeleccionado{{Campo: "estado"}, {Campo: "totales.totalFactura", Alias: "importe"}},
		Ordenacion:    []models.Orden{{Campo: "estado"}},
	}
	inf, err := f.service.Create(context.Background(), f.actor, &models.InformeRequest{Nombre: "Listado estados", InformeSpec: spec})
	require.NoError(t, err)

	file, err := f.service.Export(context.Background(), f.actor, inf.ID, models.FormatoCSV)
	require.NoError(t, err)
	assert.Equal(t, "listado_estados.csv", file.Nombre)

	r := csv.NewReader(bytes.NewReader(file.Contenido))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	// cabecera más las cuatro filas, repartidas en dos páginas
	assert.Len(t, records, 5)
	assert.Equal(t, []string{"anulada", "10"}, records[1])
}

func TestExport_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})
	inf := f.create(t, "Exportable")

	_, err := f.service.Export(context.Background(), f.actor, inf.ID, models.FormatoPDF)
	assert.True(t, errors.Is(err, utils.ErrUnsupported))
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, InformeServiceConfig{})

	fields, err := f.service.Catalog(catalog.ModuloVentas)
	require.NoError(t, err)
	assert.NotEmpty(t, fields)

	_, err = f.service.Catalog("rrhh")
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}
