package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// rowErrorDoc is one rejected row stored alongside its job
type rowErrorDoc struct {
	JobID  string           `bson:"jobId"`
	Row    int              `bson:"row"`
	Errors []string         `bson:"errors"`
	Data   models.ImportRow `bson:"data"`
}

// mongoImportJobRepo is the MongoDB implementation of ImportJobRepository
type mongoImportJobRepo struct {
	client *mongo.Client
	jobs   *mongo.Collection
	errors *mongo.Collection
}

// NewMongoImportJobRepo creates an import job repository backed by MongoDB
func NewMongoImportJobRepo(m *database.Mongo) ImportJobRepository {
	return &mongoImportJobRepo{
		client: m.Client,
		jobs:   m.DB.Collection(database.CollectionImportJobs),
		errors: m.DB.Collection(database.CollectionImportErrors),
	}
}

func (r *mongoImportJobRepo) Create(ctx context.Context, job *models.ImportJob, rowErrors []models.RowError) error {
	docs := make([]interface{}, len(rowErrors))
	for i, e := range rowErrors {
		docs[i] = rowErrorDoc{JobID: job.ID, Row: e.Row, Errors: e.Errors, Data: e.Data}
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.jobs.InsertOne(sc, job); err != nil {
			return nil, fmt.Errorf("failed to insert import job: %w", err)
		}
		if len(docs) > 0 {
			if _, err := r.errors.InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("failed to insert row errors: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

func (r *mongoImportJobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoImportJobRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.ImportJob, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "idempotencyKey": key})
}

func (r *mongoImportJobRepo) findOne(ctx context.Context, filter bson.M) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.jobs.FindOne(ctx, filter).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *mongoImportJobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.RowError, error) {
	opts := options.Find().SetSort(bson.D{{Key: "row", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.errors.Find(ctx, bson.M{"jobId": jobID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []models.RowError{}
	for cursor.Next(ctx) {
		var doc rowErrorDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result = append(result, models.RowError{Row: doc.Row, Errors: doc.Errors, Data: doc.Data})
	}
	return result, cursor.Err()
}

func (r *mongoImportJobRepo) Count(ctx context.Context) (int, error) {
	n, err := r.jobs.CountDocuments(ctx, bson.M{})
	return int(n), err
}
