package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/digital-card-api/internal/config"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	CollectionCards        = "cards"
	CollectionUsers        = "users"
	CollectionImportJobs   = "import_jobs"
	CollectionImportErrors = "import_errors"
)

// Mongo wraps a client and the application database
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	log    zerolog.Logger
}

// NewMongo connects to MongoDB and verifies the connection
func NewMongo(ctx context.Context, cfg *config.MongoConfig, log zerolog.Logger) (*Mongo, error) {
	dbName := cfg.Database
	if dbName == "" {
		uri, err := url.Parse(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse MongoDB URI: %w", err)
		}
		dbName = strings.TrimPrefix(uri.Path, "/")
	}
	if dbName == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &Mongo{
		Client: client,
		DB:     client.Database(dbName),
		log:    log.With().Str("component", "mongo").Logger(),
	}

	m.log.Info().Str("database", dbName).Msg("MongoDB connection established")
	return m, nil
}

// EnsureIndexes creates the indexes the repositories rely on, including the
// unique slug and username constraints.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionCards: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_slug")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("user_created")},
		},
		CollectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		},
		CollectionImportJobs: {
			{
				Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_idempotency").
					SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
			},
		},
		CollectionImportErrors: {
			{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "row", Value: 1}}, Options: options.Index().SetName("job_row")},
		},
	}

	for coll, models := range indexes {
		if _, err := m.DB.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}

	m.log.Info().Int("collections", len(indexes)).Msg("MongoDB indexes ensured")
	return nil
}

// HealthCheck verifies the MongoDB connection is healthy
func (m *Mongo) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
