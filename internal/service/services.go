package service

import (
	"context"
	"net/http"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/config"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/share"
	"github.com/digital-card-api/internal/sheet"
	"github.com/rs/zerolog"
)

// ImportService defines the interface for spreadsheet imports
type ImportService interface {
	ImportCards(ctx context.Context, file sheet.File, principal *auth.Principal) (*models.ImportResult, error)
	ImportCardsIdempotent(ctx context.Context, file sheet.File, principal *auth.Principal, key string) (*models.ImportResult, error)
	GetJob(ctx context.Context, principal *auth.Principal, id string) (*models.JobResponse, error)
	GetJobErrors(ctx context.Context, principal *auth.Principal, id string) ([]models.RowError, error)
}

// CardService defines the interface for single-card operations
type CardService interface {
	List(ctx context.Context, principal *auth.Principal) ([]*models.Card, error)
	Create(ctx context.Context, principal *auth.Principal, in *models.CardInput) (*models.Card, error)
	GetBySlug(ctx context.Context, slug string) (*models.Card, error)
	Update(ctx context.Context, principal *auth.Principal, slug string, patch *models.CardPatch) (*models.Card, error)
	Delete(ctx context.Context, principal *auth.Principal, slug string) error
	VCard(ctx context.Context, slug string) ([]byte, error)
	QRCode(ctx context.Context, slug string, size int) ([]byte, error)
	CardURL(card *models.Card) string
}

// AuthService defines the interface for accounts and tokens
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.UserPublic, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, principal *auth.Principal) (*models.UserPublic, error)
	Authenticate(token string) (*auth.Principal, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamCards(ctx context.Context, principal *auth.Principal, w http.ResponseWriter, format string) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Import ImportService
	Card   CardService
	Auth   AuthService
	Export ExportService
}

// NewServices creates all services. Card creation and imports share one
// slug allocator so their slug reservations never interleave.
func NewServices(repos *repository.Repositories, publisher events.Publisher, cfg *config.Config, log zerolog.Logger) *Services {
	if publisher == nil {
		publisher = events.Nop{}
	}

	slugs := NewSlugAllocator(repos.Card)
	linker := share.NewLinker(share.Domains{
		AI:   cfg.Domains.AI,
		Main: cfg.Domains.Main,
		Dev:  cfg.Domains.Dev,
	}, cfg.IsDevelopment())

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	return &Services{
		Import: newImportService(repos, slugs, publisher, cfg.Import.MaxUploadSize, log),
		Card:   newCardService(repos.Card, slugs, linker, publisher, log),
		Auth:   newAuthService(repos.User, tokens, hasher, log),
		Export: newExportService(repos, linker, log),
	}
}
