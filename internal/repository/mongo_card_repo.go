package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCardRepo is the MongoDB implementation of CardRepository
type mongoCardRepo struct {
	client *mongo.Client
	cards  *mongo.Collection
}

// NewMongoCardRepo creates a card repository backed by MongoDB
func NewMongoCardRepo(m *database.Mongo) CardRepository {
	return &mongoCardRepo{
		client: m.Client,
		cards:  m.DB.Collection(database.CollectionCards),
	}
}

func (r *mongoCardRepo) Create(ctx context.Context, card *models.Card) error {
	_, err := r.cards.InsertOne(ctx, card)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	return err
}

// BatchCreate inserts all cards in one multi-document transaction.
// Transactions need a replica set or sharded cluster.
func (r *mongoCardRepo) BatchCreate(ctx context.Context, cards []*models.Card) error {
	if len(cards) == 0 {
		return nil
	}

	docs := make([]interface{}, len(cards))
	for i, c := range cards {
		docs[i] = c
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.cards.InsertMany(sc, docs)
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *mongoCardRepo) findOne(ctx context.Context, filter bson.M) (*models.Card, error) {
	var card models.Card
	err := r.cards.FindOne(ctx, filter).Decode(&card)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *mongoCardRepo) FindBySlug(ctx context.Context, slug string) (*models.Card, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *mongoCardRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.cards.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *mongoCardRepo) ListAllSlugs(ctx context.Context) ([]string, error) {
	cursor, err := r.cards.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"slug": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var slugs []string
	for cursor.Next(ctx) {
		var doc struct {
			Slug string `bson:"slug"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		slugs = append(slugs, doc.Slug)
	}
	return slugs, cursor.Err()
}

func (r *mongoCardRepo) List(ctx context.Context, filter CardFilter) ([]*models.Card, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}

	cursor, err := r.cards.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	cards := []*models.Card{}
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *mongoCardRepo) Update(ctx context.Context, slug string, patch *models.CardPatch) (*models.Card, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var card models.Card
	err := r.cards.FindOneAndUpdate(ctx,
		bson.M{"slug": slug},
		bson.M{"$set": patchToSet(patch, time.Now())},
		opts,
	).Decode(&card)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCardNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// patchToSet maps the non-nil patch fields to their document keys
func patchToSet(patch *models.CardPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	add := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}

	add("slug", patch.Slug)
	add("name", patch.Name)
	add("title", patch.Title)
	add("company", patch.Company)
	add("phone1", patch.Phone1)
	add("phone2", patch.Phone2)
	add("email1", patch.Email1)
	add("email2", patch.Email2)
	add("address", patch.Address)
	add("avatar", patch.Avatar)
	add("imageCover", patch.ImageCover)

	return set
}

func (r *mongoCardRepo) Delete(ctx context.Context, slug string) error {
	res, err := r.cards.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *mongoCardRepo) IncrementViews(ctx context.Context, slug string) error {
	res, err := r.cards.UpdateOne(ctx, bson.M{"slug": slug}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *mongoCardRepo) Count(ctx context.Context) (int, error) {
	n, err := r.cards.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (r *mongoCardRepo) StreamAll(ctx context.Context, callback func(*models.Card) error) error {
	cursor, err := r.cards.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var card models.Card
		if err := cursor.Decode(&card); err != nil {
			return err
		}
		if err := callback(&card); err != nil {
			return err
		}
	}
	return cursor.Err()
}
