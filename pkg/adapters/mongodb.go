package adapters

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// mongoUserNotFound is the server error code returned by dropUser when
// the user does not exist.
const mongoUserNotFound = 11

// MongoAdapter provisions databases and users on a shared MongoDB server.
type MongoAdapter struct {
	cfg Config
}

// NewMongo creates a MongoDB adapter.
func NewMongo(cfg Config) *MongoAdapter {
	return &MongoAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *MongoAdapter) Kind() provision.EngineKind {
	return provision.EngineMongoDB
}

// Endpoint returns the advertised host and port.
func (a *MongoAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create materializes the database by creating an initial collection,
// then creates a user scoped to it with the readWrite role.
func (a *MongoAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.AdminDSN))
	if err != nil {
		return "", fmt.Errorf("mongodb: connect admin: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database(name)

	// A MongoDB database only exists once it holds a collection.
	if err := db.CreateCollection(ctx, "init_collection"); err != nil {
		return "", fmt.Errorf("mongodb: create %s: %w", name, err)
	}

	createUser := bson.D{
		{Key: "createUser", Value: dbUser},
		{Key: "pwd", Value: secret},
		{Key: "roles", Value: bson.A{
			bson.D{{Key: "role", Value: "readWrite"}, {Key: "db", Value: name}},
		}},
	}
	if err := db.RunCommand(ctx, createUser).Err(); err != nil {
		return "", fmt.Errorf("mongodb: create user for %s: %w", name, err)
	}

	return a.cfg.Host, nil
}

// Destroy drops the user and the database. A missing user is tolerated so
// repeated destroy calls succeed; DropDatabase is a no-op for a missing
// database.
func (a *MongoAdapter) Destroy(ctx context.Context, name, dbUser string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.AdminDSN))
	if err != nil {
		return fmt.Errorf("mongodb: connect admin: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database(name)

	dropUser := bson.D{{Key: "dropUser", Value: dbUser}}
	if err := db.RunCommand(ctx, dropUser).Err(); err != nil && !isMongoUserNotFound(err) {
		return fmt.Errorf("mongodb: drop user for %s: %w", name, err)
	}

	if err := db.Drop(ctx); err != nil {
		return fmt.Errorf("mongodb: drop %s: %w", name, err)
	}

	return nil
}

func isMongoUserNotFound(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == mongoUserNotFound
	}
	return false
}
