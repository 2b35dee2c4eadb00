package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/repository"
	"Omerix_API_Informes/pkg/database"
)

const informesCollection = "informes"

var sortFields = map[string]string{
	"nombre":    "nombre",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"modulo":    "modulo",
}

// InformeStore abre el repositorio de informes en la base de datos de cada tenant
type InformeStore struct {
	client  *mongo.Client
	prefix  string
	logger  *zap.Logger
	indexed sync.Map
}

// NewInformeStore crea el store de informes por tenant
func NewInformeStore(client *mongo.Client, prefix string, logger *zap.Logger) *InformeStore {
	return &InformeStore{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "informe_repository")),
	}
}

// ForTenant devuelve el repositorio del tenant, creando sus índices la primera vez
func (s *InformeStore) ForTenant(ctx context.Context, tenantID primitive.ObjectID) (repository.InformeRepository, error) {
	if tenantID.IsZero() {
		return nil, repository.ErrTenantRequired
	}

	db := s.client.Database(database.TenantDatabaseName(s.prefix, tenantID))
	repo := &informeRepository{
		tenantID:   tenantID,
		collection: db.Collection(informesCollection),
		logger:     s.logger.With(zap.String("tenant_id", tenantID.Hex())),
	}

	if _, done := s.indexed.Load(tenantID); !done {
		if err := repo.createIndexes(ctx); err != nil {
			return nil, err
		}
		s.indexed.Store(tenantID, true)
	}
	return repo, nil
}

type informeRepository struct {
	tenantID   primitive.ObjectID
	collection *mongo.Collection
	logger     *zap.Logger
}

// createIndexes crea los índices necesarios, incluido el único parcial de plantillas
func (r *informeRepository) createIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "modulo", Value: 1},
				{Key: "nombre", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_plantilla_modulo_nombre").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"es_plantilla": true}),
		},
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "favorito", Value: 1},
				{Key: "updated_at", Value: -1},
			},
			Options: options.Index().SetName("idx_favorito_updated"),
		},
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "modulo", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_modulo_created"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create informe indexes", zap.Error(err))
		return fmt.Errorf("failed to create informe indexes: %w", err)
	}
	return nil
}

func (r *informeRepository) TenantID() primitive.ObjectID {
	return r.tenantID
}

func (r *informeRepository) byID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "tenant_id": r.tenantID}
}

// Create inserta un informe del tenant
func (r *informeRepository) Create(ctx context.Context, informe *models.Informe) error {
	if informe == nil {
		return fmt.Errorf("informe cannot be nil")
	}
	if informe.ID.IsZero() {
		informe.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	informe.TenantID = r.tenantID
	informe.CreatedAt = now
	informe.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, informe); err != nil {
		r.logger.Error("Failed to create informe", zap.String("nombre", informe.Nombre), zap.Error(err))
		return fmt.Errorf("failed to create informe: %w", err)
	}

	r.logger.Debug("Informe created", zap.String("id", informe.ID.Hex()), zap.String("nombre", informe.Nombre))
	return nil
}

// GetByID obtiene un informe del tenant
func (r *informeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Informe, error) {
	if id.IsZero() {
		return nil, repository.ErrInvalidID
	}

	var informe models.Informe
	err := r.collection.FindOne(ctx, r.byID(id)).Decode(&informe)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrInformeNotFound
		}
		return nil, fmt.Errorf("failed to get informe: %w", err)
	}
	return &informe, nil
}

// List lista informes con filtros y paginación
func (r *informeRepository) List(ctx context.Context, filter repository.InformeFilter, opts repository.PaginationOptions) ([]*models.Informe, int64, error) {
	opts = opts.Normalize(20, 100)

	query := bson.M{"tenant_id": r.tenantID}
	if filter.Modulo != nil {
		query["modulo"] = *filter.Modulo
	}
	if filter.SoloFavoritos {
		query["favorito"] = true
	}
	if filter.EsPlantilla != nil {
		query["es_plantilla"] = *filter.EsPlantilla
	}
	if filter.Search != "" {
		query["nombre"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count informes: %w", err)
	}

	sortField, ok := sortFields[opts.SortBy]
	if !ok {
		sortField = "updated_at"
	}
	dir := -1
	if opts.SortOrder == "asc" {
		dir = 1
	}

	findOpts := options.Find().
		SetSkip(int64((opts.Page - 1) * opts.PageSize)).
		SetLimit(int64(opts.PageSize)).
		SetSort(bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find informes: %w", err)
	}
	defer cursor.Close(ctx)

	informes := []*models.Informe{}
	if err = cursor.All(ctx, &informes); err != nil {
		return nil, 0, fmt.Errorf("failed to decode informes: %w", err)
	}
	return informes, total, nil
}

// Update reemplaza la parte editable de un informe
func (r *informeRepository) Update(ctx context.Context, informe *models.Informe) error {
	if informe.ID.IsZero() {
		return repository.ErrInvalidID
	}
	informe.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"nombre":         informe.Nombre,
		"descripcion":    informe.Descripcion,
		"modulo":         informe.Modulo,
		"coleccion_base": informe.ColeccionBase,
		"campos":         informe.Campos,
		"filtros":        informe.Filtros,
		"agrupacion":     informe.Agrupacion,
		"ordenacion":     informe.Ordenacion,
		"tipo_grafico":   informe.TipoGrafico,
		"updated_at":     informe.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, r.byID(informe.ID), update)
	if err != nil {
		return fmt.Errorf("failed to update informe: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrInformeNotFound
	}
	return nil
}

// ToggleFavorito invierte el flag de favorito en el servidor y devuelve el
// informe actualizado; dos llamadas concurrentes nunca pierden un cambio
func (r *informeRepository) ToggleFavorito(ctx context.Context, id primitive.ObjectID) (*models.Informe, error) {
	if id.IsZero() {
		return nil, repository.ErrInvalidID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"favorito":   bson.M{"$not": bson.A{"$favorito"}},
			"updated_at": time.Now().UTC(),
		}}},
	}

	var informe models.Informe
	err := r.collection.FindOneAndUpdate(ctx, r.byID(id), update, opts).Decode(&informe)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrInformeNotFound
		}
		return nil, fmt.Errorf("failed to update favorito: %w", err)
	}
	return &informe, nil
}

// Delete elimina un informe
func (r *informeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if id.IsZero() {
		return repository.ErrInvalidID
	}

	result, err := r.collection.DeleteOne(ctx, r.byID(id))
	if err != nil {
		return fmt.Errorf("failed to delete informe: %w", err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrInformeNotFound
	}
	return nil
}

// InsertTemplateIfMissing inserta con upsert sobre (modulo, nombre, es_plantilla).
// Si dos siembras concurrentes compiten, el índice único parcial rechaza la segunda.
func (r *informeRepository) InsertTemplateIfMissing(ctx context.Context, informe *models.Informe) (bool, error) {
	now := time.Now().UTC()
	if informe.ID.IsZero() {
		informe.ID = primitive.NewObjectID()
	}
	informe.TenantID = r.tenantID
	informe.EsPlantilla = true
	informe.CreatedAt = now
	informe.UpdatedAt = now

	filter := bson.M{
		"tenant_id":    r.tenantID,
		"modulo":       informe.Modulo,
		"nombre":       informe.Nombre,
		"es_plantilla": true,
	}

	result, err := r.collection.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": informe},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to seed template %s: %w", informe.Nombre, err)
	}
	return result.UpsertedCount > 0, nil
}
