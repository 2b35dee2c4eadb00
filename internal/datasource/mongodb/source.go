// Package mongodb implementa el origen de datos de informes sobre MongoDB,
// con una base de datos por tenant.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"Omerix_API_Informes/internal/datasource"
	"Omerix_API_Informes/internal/informes/compiler"
	"Omerix_API_Informes/pkg/database"
)

// Códigos de servidor que indican un fallo pasajero del replica set
var transientCodes = map[int32]bool{
	6:     true, // HostUnreachable
	7:     true, // HostNotFound
	89:    true, // NetworkTimeout
	91:    true, // ShutdownInProgress
	189:   true, // PrimarySteppedDown
	10107: true, // NotWritablePrimary
	11600: true, // InterruptedAtShutdown
	11602: true, // InterruptedDueToReplStateChange
	13435: true, // NotPrimaryNoSecondaryOk
	13436: true, // NotPrimaryOrSecondary
}

// Provider entrega un Source por tenant sobre un cliente compartido
type Provider struct {
	client *mongo.Client
	prefix string
	logger *zap.Logger
}

// NewProvider crea el proveedor de orígenes por tenant
func NewProvider(client *mongo.Client, prefix string, logger *zap.Logger) *Provider {
	return &Provider{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "datasource_mongodb")),
	}
}

// ForTenant devuelve el Source ligado a la base de datos del tenant
func (p *Provider) ForTenant(ctx context.Context, tenantID primitive.ObjectID) (datasource.Source, error) {
	if tenantID.IsZero() {
		return nil, errors.New("tenant id is required")
	}
	db := p.client.Database(database.TenantDatabaseName(p.prefix, tenantID))
	return &Source{db: db, logger: p.logger.With(zap.String("tenant_id", tenantID.Hex()))}, nil
}

// Source origen de datos de un tenant
type Source struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewSource crea un origen sobre una base de datos concreta
func NewSource(db *mongo.Database, logger *zap.Logger) *Source {
	return &Source{db: db, logger: logger}
}

// Aggregate ejecuta las etapas y renombra los alias a las claves de salida
func (s *Source) Aggregate(ctx context.Context, coleccion string, stages []compiler.Stage) ([]map[string]interface{}, error) {
	tr, err := Translate(stages)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Running aggregation",
		zap.String("collection", coleccion),
		zap.Int("stages", len(tr.Pipeline)))

	cursor, err := s.db.Collection(coleccion).Aggregate(ctx, tr.Pipeline)
	if err != nil {
		return nil, classify(fmt.Errorf("aggregate %s: %w", coleccion, err))
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("decode %s: %w", coleccion, err))
	}

	rows := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, decodeRow(doc, tr.Keys))
	}
	return rows, nil
}

// Count ejecuta las etapas seguidas de $count
func (s *Source) Count(ctx context.Context, coleccion string, stages []compiler.Stage) (int64, error) {
	tr, err := Translate(stages)
	if err != nil {
		return 0, err
	}
	pipeline := append(tr.Pipeline, bson.D{{Key: "$count", Value: "total"}})

	cursor, err := s.db.Collection(coleccion).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, classify(fmt.Errorf("count %s: %w", coleccion, err))
	}
	defer cursor.Close(ctx)

	var out []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, classify(fmt.Errorf("decode count %s: %w", coleccion, err))
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func decodeRow(doc bson.M, keys map[string]string) map[string]interface{} {
	if len(keys) == 0 {
		row := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			row[k] = plainValue(v)
		}
		return row
	}
	row := make(map[string]interface{}, len(keys))
	for alias, key := range keys {
		row[key] = plainValue(doc[alias])
	}
	return row
}

// plainValue convierte tipos BSON a tipos Go serializables
func plainValue(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case int32:
		return int64(x)
	case primitive.Decimal128:
		return x.String()
	case primitive.A:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = plainValue(e)
		}
		return out
	}
	return v
}

// classify marca como transitorios los errores de red y de cambio de primario
func classify(err error) error {
	if mongo.IsNetworkError(err) {
		return datasource.MarkTransient(err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("RetryableWriteError") {
			return datasource.MarkTransient(err)
		}
		for code := range transientCodes {
			if se.HasErrorCode(int(code)) {
				return datasource.MarkTransient(err)
			}
		}
	}
	return err
}
