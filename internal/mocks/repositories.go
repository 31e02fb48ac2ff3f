package mocks

import (
	"context"
	"sort"

	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.CardRepository      = (*MockCardRepository)(nil)
	_ repository.UserRepository      = (*MockUserRepository)(nil)
	_ repository.ImportJobRepository = (*MockImportJobRepository)(nil)
	_ repository.HealthChecker       = (*MockHealthChecker)(nil)
)

// NewMockRepositories wires fresh mocks into a Repositories value
func NewMockRepositories() (*repository.Repositories, *MockCardRepository, *MockUserRepository, *MockImportJobRepository) {
	cards := NewMockCardRepository()
	users := NewMockUserRepository()
	jobs := NewMockImportJobRepository()
	return &repository.Repositories{
		Card:      cards,
		User:      users,
		ImportJob: jobs,
		Health:    &MockHealthChecker{},
	}, cards, users, jobs
}

// MockCardRepository is a mock implementation of CardRepository
type MockCardRepository struct {
	Cards           map[string]*models.Card // keyed by slug
	InsertError     error
	BatchCreateFunc func(ctx context.Context, cards []*models.Card) error
	ListSlugsError  error

	BatchCreateCalls  int
	ListAllSlugsCalls int
	CreateCalls       int
	UpdateCalls       int
}

func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{
		Cards: make(map[string]*models.Card),
	}
}

// Seed stores cards without counting calls
func (m *MockCardRepository) Seed(cards ...*models.Card) {
	for _, c := range cards {
		m.Cards[c.Slug] = c
	}
}

func (m *MockCardRepository) Create(ctx context.Context, card *models.Card) error {
	m.CreateCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, exists := m.Cards[card.Slug]; exists {
		return repository.ErrSlugTaken
	}
	m.Cards[card.Slug] = card
	return nil
}

func (m *MockCardRepository) BatchCreate(ctx context.Context, cards []*models.Card) error {
	m.BatchCreateCalls++
	if m.BatchCreateFunc != nil {
		return m.BatchCreateFunc(ctx, cards)
	}
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, c := range cards {
		if _, exists := m.Cards[c.Slug]; exists {
			return repository.ErrSlugTaken
		}
	}
	for _, c := range cards {
		m.Cards[c.Slug] = c
	}
	return nil
}

func (m *MockCardRepository) FindBySlug(ctx context.Context, slug string) (*models.Card, error) {
	c, ok := m.Cards[slug]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MockCardRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, exists := m.Cards[slug]
	return exists, nil
}

func (m *MockCardRepository) ListAllSlugs(ctx context.Context) ([]string, error) {
	m.ListAllSlugsCalls++
	if m.ListSlugsError != nil {
		return nil, m.ListSlugsError
	}
	slugs := make([]string, 0, len(m.Cards))
	for s := range m.Cards {
		slugs = append(slugs, s)
	}
	return slugs, nil
}

func (m *MockCardRepository) List(ctx context.Context, filter repository.CardFilter) ([]*models.Card, error) {
	var out []*models.Card
	for _, c := range m.Cards {
		if filter.UserID == "" || c.UserID == filter.UserID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockCardRepository) Update(ctx context.Context, slug string, patch *models.CardPatch) (*models.Card, error) {
	m.UpdateCalls++
	c, ok := m.Cards[slug]
	if !ok {
		return nil, repository.ErrCardNotFound
	}
	if patch.Slug != nil && *patch.Slug != slug {
		if _, taken := m.Cards[*patch.Slug]; taken {
			return nil, repository.ErrSlugTaken
		}
	}
	updated := *c
	patch.Apply(&updated)
	delete(m.Cards, slug)
	m.Cards[updated.Slug] = &updated
	return &updated, nil
}

func (m *MockCardRepository) Delete(ctx context.Context, slug string) error {
	if _, ok := m.Cards[slug]; !ok {
		return repository.ErrCardNotFound
	}
	delete(m.Cards, slug)
	return nil
}

func (m *MockCardRepository) IncrementViews(ctx context.Context, slug string) error {
	c, ok := m.Cards[slug]
	if !ok {
		return repository.ErrCardNotFound
	}
	c.Views++
	return nil
}

func (m *MockCardRepository) Count(ctx context.Context) (int, error) {
	return len(m.Cards), nil
}

func (m *MockCardRepository) StreamAll(ctx context.Context, callback func(*models.Card) error) error {
	slugs := make([]string, 0, len(m.Cards))
	for s := range m.Cards {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		if err := callback(m.Cards[s]); err != nil {
			return err
		}
	}
	return nil
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users       map[string]*models.User
	InsertError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return repository.ErrUserExists
		}
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.Users[id], nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	return len(m.Users), nil
}

// MockImportJobRepository is a mock implementation of ImportJobRepository
type MockImportJobRepository struct {
	Jobs        map[string]*models.ImportJob
	Errors      map[string][]models.RowError
	CreateError error
	CreateCalls int
}

func NewMockImportJobRepository() *MockImportJobRepository {
	return &MockImportJobRepository{
		Jobs:   make(map[string]*models.ImportJob),
		Errors: make(map[string][]models.RowError),
	}
}

func (m *MockImportJobRepository) Create(ctx context.Context, job *models.ImportJob, rowErrors []models.RowError) error {
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Jobs[job.ID] = job
	m.Errors[job.ID] = append([]models.RowError(nil), rowErrors...)
	return nil
}

func (m *MockImportJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	return m.Jobs[id], nil
}

func (m *MockImportJobRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.ImportJob, error) {
	for _, job := range m.Jobs {
		if job.UserID == userID && job.IdempotencyKey == key {
			return job, nil
		}
	}
	return nil, nil
}

func (m *MockImportJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.RowError, error) {
	errors := m.Errors[jobID]
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}

func (m *MockImportJobRepository) Count(ctx context.Context) (int, error) {
	return len(m.Jobs), nil
}

// MockHealthChecker reports Err from every check
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
