package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/models"
)

// Errores comunes del repositorio
var (
	ErrInformeNotFound = errors.New("informe not found")
	ErrInvalidID       = errors.New("invalid id")
	ErrTenantRequired  = errors.New("tenant id is required")
)

// InformeRepository persistencia de informes de un único tenant. Se obtiene
// de InformeStore.ForTenant y no admite identificadores de otro tenant.
type InformeRepository interface {
	TenantID() primitive.ObjectID
	Create(ctx context.Context, informe *models.Informe) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Informe, error)
	List(ctx context.Context, filter InformeFilter, opts PaginationOptions) ([]*models.Informe, int64, error)
	Update(ctx context.Context, informe *models.Informe) error
	ToggleFavorito(ctx context.Context, id primitive.ObjectID) (*models.Informe, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// InsertTemplateIfMissing inserta la plantilla salvo que exista otra con el
	// mismo (modulo, nombre); devuelve true si la insertó.
	InsertTemplateIfMissing(ctx context.Context, informe *models.Informe) (bool, error)
}

// InformeStore entrega el repositorio de cada tenant
type InformeStore interface {
	ForTenant(ctx context.Context, tenantID primitive.ObjectID) (InformeRepository, error)
}
