package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
	"Omerix_API_Informes/internal/repository"
	"Omerix_API_Informes/pkg/aiclient"
	"Omerix_API_Informes/pkg/cache"
)

// memStore repositorio de informes en memoria, separado por tenant
type memStore struct {
	mu      sync.Mutex
	tenants map[primitive.ObjectID]map[primitive.ObjectID]*models.Informe
	creates int
}

func newMemStore() *memStore {
	return &memStore{tenants: make(map[primitive.ObjectID]map[primitive.ObjectID]*models.Informe)}
}

func (s *memStore) ForTenant(_ context.Context, tenantID primitive.ObjectID) (repository.InformeRepository, error) {
	if tenantID.IsZero() {
		return nil, repository.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		s.tenants[tenantID] = make(map[primitive.ObjectID]*models.Informe)
	}
	return &memRepo{store: s, tenant: tenantID}, nil
}

func copyInforme(in *models.Informe) *models.Informe {
	out := *in
	out.InformeSpec = in.InformeSpec.Clone()
	return &out
}

type memRepo struct {
	store  *memStore
	tenant primitive.ObjectID
}

func (r *memRepo) docs() map[primitive.ObjectID]*models.Informe {
	return r.store.tenants[r.tenant]
}

func (r *memRepo) TenantID() primitive.ObjectID { return r.tenant }

func (r *memRepo) Create(_ context.Context, informe *models.Informe) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if informe.ID.IsZero() {
		informe.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	informe.TenantID = r.tenant
	informe.CreatedAt, informe.UpdatedAt = now, now
	r.docs()[informe.ID] = copyInforme(informe)
	r.store.creates++
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Informe, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if id.IsZero() {
		return nil, repository.ErrInvalidID
	}
	inf, ok := r.docs()[id]
	if !ok {
		return nil, repository.ErrInformeNotFound
	}
	return copyInforme(inf), nil
}

func (r *memRepo) List(_ context.Context, filter repository.InformeFilter, opts repository.PaginationOptions) ([]*models.Informe, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	opts = opts.Normalize(20, 100)

	var out []*models.Informe
	for _, inf := range r.docs() {
		if filter.Modulo != nil && inf.Modulo != *filter.Modulo {
			continue
		}
		if filter.SoloFavoritos && !inf.Favorito {
			continue
		}
		if filter.EsPlantilla != nil && inf.EsPlantilla != *filter.EsPlantilla {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(inf.Nombre), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, copyInforme(inf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })

	total := int64(len(out))
	start := (opts.Page - 1) * opts.PageSize
	if start > len(out) {
		start = len(out)
	}
	end := start + opts.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memRepo) Update(_ context.Context, informe *models.Informe) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.docs()[informe.ID]; !ok {
		return repository.ErrInformeNotFound
	}
	informe.UpdatedAt = time.Now().UTC()
	r.docs()[informe.ID] = copyInforme(informe)
	return nil
}

func (r *memRepo) ToggleFavorito(_ context.Context, id primitive.ObjectID) (*models.Informe, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inf, ok := r.docs()[id]
	if !ok {
		return nil, repository.ErrInformeNotFound
	}
	inf.Favorito = !inf.Favorito
	return copyInforme(inf), nil
}

func (r *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.docs()[id]; !ok {
		return repository.ErrInformeNotFound
	}
	delete(r.docs(), id)
	return nil
}

func (r *memRepo) InsertTemplateIfMissing(_ context.Context, informe *models.Informe) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, inf := range r.docs() {
		if inf.EsPlantilla && inf.Modulo == informe.Modulo && inf.Nombre == informe.Nombre {
			return false, nil
		}
	}
	if informe.ID.IsZero() {
		informe.ID = primitive.NewObjectID()
	}
	informe.TenantID = r.tenant
	informe.EsPlantilla = true
	r.docs()[informe.ID] = copyInforme(informe)
	return true, nil
}

// mapCache caché en memoria con la misma serialización JSON que Redis
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrKeyNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Exists(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *mapCache) Ping(context.Context) error { return nil }
func (c *mapCache) Close() error               { return nil }

type mockInterpreter struct {
	mock.Mock
}

func (m *mockInterpreter) Interpret(ctx context.Context, req *aiclient.InterpretRequest) (*aiclient.InterpretResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*aiclient.InterpretResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// mockInformeService sustituye al servicio de informes en los tests del adaptador de IA
type mockInformeService struct {
	mock.Mock
	InformeService
}

func (m *mockInformeService) Catalog(modulo catalog.Module) ([]catalog.FieldDefinition, error) {
	return m.InformeService.Catalog(modulo)
}

func (m *mockInformeService) Create(ctx context.Context, actor models.Actor, req *models.InformeRequest) (*models.Informe, error) {
	args := m.Called(ctx, actor, req)
	if inf, ok := args.Get(0).(*models.Informe); ok {
		return inf, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInformeService) ExecuteAdHoc(ctx context.Context, actor models.Actor, spec models.InformeSpec, page, limit int) (*models.ResultadoInforme, error) {
	args := m.Called(ctx, actor, spec, page, limit)
	if res, ok := args.Get(0).(*models.ResultadoInforme); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}
