package repository

import (
	"context"
	"errors"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrSlugTaken    = errors.New("slug already taken")
	ErrUserExists   = errors.New("username already exists")
	ErrJobNotFound  = errors.New("import job not found")
)

// CardFilter narrows List; an empty UserID lists every card
type CardFilter struct {
	UserID string
}

// CardRepository defines the interface for card data operations.
// Lookups return nil, nil when the card does not exist.
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	// BatchCreate stores every card or none of them
	BatchCreate(ctx context.Context, cards []*models.Card) error
	FindBySlug(ctx context.Context, slug string) (*models.Card, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListAllSlugs(ctx context.Context) ([]string, error)
	List(ctx context.Context, filter CardFilter) ([]*models.Card, error)
	Update(ctx context.Context, slug string, patch *models.CardPatch) (*models.Card, error)
	Delete(ctx context.Context, slug string) error
	IncrementViews(ctx context.Context, slug string) error
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Card) error) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// ImportJobRepository stores the outcome of each import request
type ImportJobRepository interface {
	// Create stores the job together with its rejected rows
	Create(ctx context.Context, job *models.ImportJob, rowErrors []models.RowError) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.ImportJob, error)
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.RowError, error)
	Count(ctx context.Context) (int, error)
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Card      CardRepository
	User      UserRepository
	ImportJob ImportJobRepository
	Health    HealthChecker
}

// NewPostgres creates all repositories backed by PostgreSQL
func NewPostgres(db *database.DB) *Repositories {
	return &Repositories{
		Card:      NewCardRepo(db),
		User:      NewUserRepo(db),
		ImportJob: NewImportJobRepo(db),
		Health:    db,
	}
}

// NewMongo creates all repositories backed by MongoDB
func NewMongo(m *database.Mongo) *Repositories {
	return &Repositories{
		Card:      NewMongoCardRepo(m),
		User:      NewMongoUserRepo(m),
		ImportJob: NewMongoImportJobRepo(m),
		Health:    m,
	}
}
