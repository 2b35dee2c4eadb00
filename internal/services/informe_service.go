package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/export"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/internal/informes/engine"
	"Omerix_API_Informes/internal/informes/plantillas"
	"Omerix_API_Informes/internal/informes/validator"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/repository"
	"Omerix_API_Informes/internal/utils"
	"Omerix_API_Informes/pkg/cache"
)

// InformeService casos de uso de definiciones de informe. Toda operación recibe
// el Actor y solo accede al repositorio de su tenant.
type InformeService interface {
	Catalog(modulo catalog.Module) ([]catalog.FieldDefinition, error)
	Create(ctx context.Context, actor models.Actor, req *models.InformeRequest) (*models.Informe, error)
	GetByID(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Informe, error)
	List(ctx context.Context, actor models.Actor, filter repository.InformeFilter, opts repository.PaginationOptions) ([]*models.Informe, int64, error)
	Update(ctx context.Context, actor models.Actor, id primitive.ObjectID, req *models.InformeRequest) (*models.Informe, error)
	Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error
	Duplicate(ctx context.Context, actor models.Actor, id primitive.ObjectID, nombre string) (*models.Informe, error)
	ToggleFavorite(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Informe, error)
	SeedTemplates(ctx context.Context, actor models.Actor) (int, error)
	Execute(ctx context.Context, actor models.Actor, id primitive.ObjectID, page, limit int) (*models.ResultadoInforme, error)
	ExecuteAdHoc(ctx context.Context, actor models.Actor, spec models.InformeSpec, page, limit int) (*models.ResultadoInforme, error)
	Export(ctx context.Context, actor models.Actor, id primitive.ObjectID, formato models.FormatoExportacion) (*export.Archivo, error)
}

// InformeServiceConfig límites de paginación y siembra
type InformeServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
	SeededTTL    time.Duration
}

type informeService struct {
	store     repository.InformeStore
	provider  datasource.Provider
	validator *validator.Validator
	engine    *engine.Engine
	exporters *export.Registry
	cache     cache.CacheService
	config    InformeServiceConfig
	logger    *zap.Logger
}

// NewInformeService crea el servicio de informes
func NewInformeService(
	store repository.InformeStore,
	provider datasource.Provider,
	v *validator.Validator,
	eng *engine.Engine,
	exporters *export.Registry,
	cacheService cache.CacheService,
	config InformeServiceConfig,
	logger *zap.Logger,
) InformeService {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 50
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = config.DefaultLimit
	}
	if cacheService == nil {
		cacheService = cache.NewNoopCacheService()
	}
	return &informeService{
		store:     store,
		provider:  provider,
		validator: v,
		engine:    eng,
		exporters: exporters,
		cache:     cacheService,
		config:    config,
		logger:    logger.With(zap.String("component", "informe_service")),
	}
}

func (s *informeService) repo(ctx context.Context, actor models.Actor) (repository.InformeRepository, error) {
	if actor.TenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenant is required", utils.ErrUnauthorized)
	}
	return s.store.ForTenant(ctx, actor.TenantID)
}

// notFound traduce el error del repositorio a la taxonomía del dominio
func notFound(err error, id primitive.ObjectID) error {
	if errors.Is(err, repository.ErrInformeNotFound) || errors.Is(err, repository.ErrInvalidID) {
		return utils.NewNotFoundError("informe", id.Hex())
	}
	return err
}

func (s *informeService) Catalog(modulo catalog.Module) ([]catalog.FieldDefinition, error) {
	c := s.validator.Catalog()
	if !c.HasModule(modulo) {
		return nil, utils.NewNotFoundError("modulo", string(modulo))
	}
	return c.FieldsFor(modulo), nil
}

func (s *informeService) Create(ctx context.Context, actor models.Actor, req *models.InformeRequest) (*models.Informe, error) {
	def, err := s.validator.Validate(req.InformeSpec)
	if err != nil {
		return nil, err
	}

	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, err
	}

	informe := &models.Informe{
		ID:            primitive.NewObjectID(),
		Nombre:        req.Nombre,
		Descripcion:   req.Descripcion,
		InformeSpec:   def.Spec,
		PropietarioID: actor.UserID,
	}
	if err := repo.Create(ctx, informe); err != nil {
		return nil, fmt.Errorf("failed to create informe: %w", err)
	}

	s.logger.Info("Informe created",
		zap.String("tenant_id", actor.TenantID.Hex()),
		zap.String("informe_id", informe.ID.Hex()),
		zap.String("modulo", string(informe.Modulo)))
	return informe, nil
}

func (s *informeService) GetByID(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Informe, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, err
	}
	informe, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return informe, nil
}

func (s *informeService) List(ctx context.Context, actor models.Actor, filter repository.InformeFilter, opts repository.PaginationOptions) ([]*models.Informe, int64, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	informes, total, err := repo.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list informes: %w", err)
	}
	return informes, total, nil
}

func (s *informeService) Update(ctx context.Context, actor models.Actor, id primitive.ObjectID, req *models.InformeRequest) (*models.Informe, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, err
	}
	informe, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if informe.EsPlantilla {
		return nil, fmt.Errorf("%w: templates are read-only, duplicate it to customize", utils.ErrForbidden)
	}

	def, err := s.validator.Validate(req.InformeSpec)
	if err != nil {
		return nil, err
	}

	informe.Nombre = req.Nombre
	informe.Descripcion = req.Descripcion
	informe.InformeSpec = def.Spec
	if err := repo.Update(ctx, informe); err != nil {
		return nil, notFound(err, id)
	}
	return informe, nil
}

func (s *informeService) Delete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return notFound(err, id)
	}
	s.logger.Info("Informe deleted",
		zap.String("tenant_id", actor.TenantID.Hex()),
		zap.String("informe_id", id.Hex()))
	return nil
}

// Duplicate clona la definición con nueva identidad, sin marcas de plantilla
// ni favorito y con el llamante como propietario
func (s *informeService) Duplicate(ctx context.Context, actor models.Actor, id primitive.ObjectID, nombre string) (*models.Informe, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, err
	}
	source, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}

	def, err := s.validator.Validate(source.InformeSpec.Clone())
	if err != nil {
		return nil, err
	}

	if nombre == "" {
		nombre = source.Nombre + " (copia)"
	}
	clone := &models.Informe{
		ID:            primitive.NewObjectID(),
		Nombre:        nombre,
		Descripcion:   source.Descripcion,
		InformeSpec:   def.Spec,
		EsPlantilla:   false,
		Favorito:      false,
		PropietarioID: actor.UserID,
	}
	if err := repo.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to duplicate informe: %w", err)
	}
	return clone, nil
}

func (s *informeService) ToggleFavorite(ctx context.Context, actor models.Actor, id primitive.ObjectID) (*models.Informe, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return nil, err
	}
	updated, err := repo.ToggleFavorito(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return updated, nil
}

// SeedTemplates inserta las plantillas que falten en el tenant. La marca en
// caché evita repetir la comprobación; la unicidad la garantiza el repositorio.
func (s *informeService) SeedTemplates(ctx context.Context, actor models.Actor) (int, error) {
	repo, err := s.repo(ctx, actor)
	if err != nil {
		return 0, err
	}

	marker := cache.PlantillasKeys.Build(actor.TenantID.Hex())
	if s.cache.Exists(ctx, marker) {
		return 0, nil
	}

	inserted := 0
	for _, p := range plantillas.All() {
		def, err := s.validator.Validate(p.Spec)
		if err != nil {
			return inserted, fmt.Errorf("template %q is invalid: %w", p.Nombre, err)
		}
		ok, err := repo.InsertTemplateIfMissing(ctx, &models.Informe{
			Nombre:      p.Nombre,
			Descripcion: p.Descripcion,
			InformeSpec: def.Spec,
			EsPlantilla: true,
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}

	if err := s.cache.Set(ctx, marker, time.Now().UTC(), s.config.SeededTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Failed to store seeding marker", zap.Error(err))
	}

	s.logger.Info("Templates seeded",
		zap.String("tenant_id", actor.TenantID.Hex()),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func (s *informeService) Execute(ctx context.Context, actor models.Actor, id primitive.ObjectID, page, limit int) (*models.ResultadoInforme, error) {
	informe, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.ExecuteAdHoc(ctx, actor, informe.InformeSpec, page, limit)
}

// ExecuteAdHoc valida, compila y ejecuta una definición contra el tenant del actor
func (s *informeService) ExecuteAdHoc(ctx context.Context, actor models.Actor, spec models.InformeSpec, page, limit int) (*models.ResultadoInforme, error) {
	def, err := s.validator.Validate(spec)
	if err != nil {
		return nil, err
	}
	page, limit = s.pagination(page, limit)
	return s.run(ctx, actor, compiler.Compile(def, page, limit))
}

func (s *informeService) run(ctx context.Context, actor models.Actor, plan *compiler.Plan) (*models.ResultadoInforme, error) {
	src, err := s.source(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.engine.Execute(ctx, src, plan)
}

func (s *informeService) source(ctx context.Context, actor models.Actor) (datasource.Source, error) {
	if actor.TenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenant is required", utils.ErrUnauthorized)
	}
	src, err := s.provider.ForTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant data source: %w", err)
	}
	return src, nil
}

func (s *informeService) pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	return page, limit
}

// Export ejecuta el informe completo, página a página, y lo entrega al renderizador
func (s *informeService) Export(ctx context.Context, actor models.Actor, id primitive.ObjectID, formato models.FormatoExportacion) (*export.Archivo, error) {
	if !s.exporters.Supports(formato) {
		return nil, fmt.Errorf("%w: export format %q", utils.ErrUnsupported, formato)
	}

	informe, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	def, err := s.validator.Validate(informe.InformeSpec)
	if err != nil {
		return nil, err
	}

	src, err := s.source(ctx, actor)
	if err != nil {
		return nil, err
	}

	// totales y recuento solo en la primera página
	full, err := s.engine.Execute(ctx, src, compiler.Compile(def, 1, s.config.MaxLimit))
	if err != nil {
		return nil, err
	}
	for page := 2; page <= full.Paginacion.TotalPages; page++ {
		rows, err := s.engine.Rows(ctx, src, compiler.Compile(def, page, s.config.MaxLimit))
		if err != nil {
			return nil, err
		}
		full.Datos = append(full.Datos, rows...)
	}
	full.Paginacion = models.Paginacion{
		Page:       1,
		Limit:      len(full.Datos),
		Total:      full.Paginacion.Total,
		TotalPages: 1,
	}

	s.logger.Info("Informe exported",
		zap.String("tenant_id", actor.TenantID.Hex()),
		zap.String("informe_id", id.Hex()),
		zap.String("formato", string(formato)),
		zap.Int("rows", len(full.Datos)))

	return s.exporters.Render(formato, informe.Nombre, full)
}
