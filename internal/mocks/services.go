package mocks

import (
	"context"
	"net/http"
	"sync"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
	"github.com/digital-card-api/internal/sheet"
)

// Verify interface compliance
var (
	_ service.ImportService = (*MockImportService)(nil)
	_ service.CardService   = (*MockCardService)(nil)
	_ service.AuthService   = (*MockAuthService)(nil)
	_ service.ExportService = (*MockExportService)(nil)
	_ events.Publisher      = (*RecordingPublisher)(nil)
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ImportFunc func(ctx context.Context, file sheet.File, principal *auth.Principal, key string) (*models.ImportResult, error)
	Jobs       map[string]*models.JobResponse
	Errors     map[string][]models.RowError

	ImportCalls int
	LastKey     string
	LastFile    sheet.File
}

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.RowError),
	}
}

func (m *MockImportService) ImportCards(ctx context.Context, file sheet.File, principal *auth.Principal) (*models.ImportResult, error) {
	return m.ImportCardsIdempotent(ctx, file, principal, "")
}

func (m *MockImportService) ImportCardsIdempotent(ctx context.Context, file sheet.File, principal *auth.Principal, key string) (*models.ImportResult, error) {
	m.ImportCalls++
	m.LastKey = key
	m.LastFile = file
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, file, principal, key)
	}
	return &models.ImportResult{
		JobID:        "test-job-id",
		Success:      true,
		ErrorRows:    []models.RowError{},
		CreatedCards: []string{},
	}, nil
}

func (m *MockImportService) GetJob(ctx context.Context, principal *auth.Principal, id string) (*models.JobResponse, error) {
	if !principal.IsAdmin() {
		return nil, service.ErrForbidden
	}
	job, ok := m.Jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}

func (m *MockImportService) GetJobErrors(ctx context.Context, principal *auth.Principal, id string) ([]models.RowError, error) {
	if !principal.IsAdmin() {
		return nil, service.ErrForbidden
	}
	if _, ok := m.Jobs[id]; !ok {
		return nil, repository.ErrJobNotFound
	}
	return m.Errors[id], nil
}

// MockCardService is a mock implementation of CardService
type MockCardService struct {
	Cards      map[string]*models.Card
	CreateFunc func(ctx context.Context, principal *auth.Principal, in *models.CardInput) (*models.Card, error)
	UpdateFunc func(ctx context.Context, principal *auth.Principal, slug string, patch *models.CardPatch) (*models.Card, error)
	QRFunc     func(ctx context.Context, slug string, size int) ([]byte, error)

	DeleteCalls int
}

func NewMockCardService() *MockCardService {
	return &MockCardService{
		Cards: make(map[string]*models.Card),
	}
}

func (m *MockCardService) List(ctx context.Context, principal *auth.Principal) ([]*models.Card, error) {
	out := []*models.Card{}
	for _, c := range m.Cards {
		if principal.CanManage(c.UserID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCardService) Create(ctx context.Context, principal *auth.Principal, in *models.CardInput) (*models.Card, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, principal, in)
	}
	card := &models.Card{ID: "card-1", Slug: "card", Name: in.Name, UserID: principal.UserID}
	m.Cards[card.Slug] = card
	return card, nil
}

func (m *MockCardService) GetBySlug(ctx context.Context, slug string) (*models.Card, error) {
	c, ok := m.Cards[slug]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	return c, nil
}

func (m *MockCardService) Update(ctx context.Context, principal *auth.Principal, slug string, patch *models.CardPatch) (*models.Card, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, principal, slug, patch)
	}
	c, ok := m.Cards[slug]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	patch.Apply(c)
	return c, nil
}

func (m *MockCardService) Delete(ctx context.Context, principal *auth.Principal, slug string) error {
	m.DeleteCalls++
	c, ok := m.Cards[slug]
	if !ok {
		return repository.ErrCardNotFound
	}
	if !principal.CanManage(c.UserID) {
		return service.ErrForbidden
	}
	delete(m.Cards, slug)
	return nil
}

func (m *MockCardService) VCard(ctx context.Context, slug string) ([]byte, error) {
	c, ok := m.Cards[slug]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	return []byte("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:" + c.Name + "\r\nEND:VCARD\r\n"), nil
}

func (m *MockCardService) QRCode(ctx context.Context, slug string, size int) ([]byte, error) {
	if m.QRFunc != nil {
		return m.QRFunc(ctx, slug, size)
	}
	if _, ok := m.Cards[slug]; !ok {
		return nil, repository.ErrCardNotFound
	}
	return []byte("\x89PNG"), nil
}

func (m *MockCardService) CardURL(card *models.Card) string {
	return "http://localhost:3000/" + card.Slug
}

// MockAuthService is a mock implementation of AuthService.
// Tokens map directly to principals.
type MockAuthService struct {
	Tokens map[string]*auth.Principal
	Users  map[string]*models.UserPublic

	RegisterFunc func(ctx context.Context, req *models.RegisterRequest) (*models.UserPublic, error)
	LoginFunc    func(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Tokens: make(map[string]*auth.Principal),
		Users:  make(map[string]*models.UserPublic),
	}
}

func (m *MockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserPublic, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return &models.UserPublic{ID: "user-new", Username: req.Username, Role: models.RoleUser}, nil
}

func (m *MockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return nil, service.ErrBadCredentials
}

func (m *MockAuthService) Me(ctx context.Context, principal *auth.Principal) (*models.UserPublic, error) {
	u, ok := m.Users[principal.UserID]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func (m *MockAuthService) Authenticate(token string) (*auth.Principal, error) {
	p, ok := m.Tokens[token]
	if !ok {
		return nil, service.ErrUnauthorized
	}
	return p, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamCardsFunc func(ctx context.Context, principal *auth.Principal, w http.ResponseWriter, format string) error
	Counts          map[string]int
}

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[string]int{
			"cards":   0,
			"users":   0,
			"imports": 0,
		},
	}
}

func (m *MockExportService) StreamCards(ctx context.Context, principal *auth.Principal, w http.ResponseWriter, format string) error {
	if m.StreamCardsFunc != nil {
		return m.StreamCardsFunc(ctx, principal, w, format)
	}
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	return m.Counts[resource], nil
}

// RecordingPublisher keeps every published event in memory
type RecordingPublisher struct {
	mu       sync.Mutex
	Subjects []string
	Events   []interface{}
	Err      error
}

func (p *RecordingPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Subjects = append(p.Subjects, subject)
	p.Events = append(p.Events, event)
	return nil
}

func (p *RecordingPublisher) Close() {}

// Published returns a snapshot of the recorded subjects
func (p *RecordingPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Subjects...)
}
