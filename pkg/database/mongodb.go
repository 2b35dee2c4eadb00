package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoConnection establece conexión con MongoDB y verifica con un ping
func NewMongoConnection(uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Configurar opciones del cliente
	clientOptions := options.Client().ApplyURI(uri).SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Verificar la conexión
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return client, nil
}

// DisconnectMongoDB cierra la conexión con MongoDB
func DisconnectMongoDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return client.Disconnect(ctx)
}

// TenantDatabaseName nombre de la base de datos de un tenant: prefijo + id hexadecimal
func TenantDatabaseName(prefix string, tenantID primitive.ObjectID) string {
	return prefix + tenantID.Hex()
}
