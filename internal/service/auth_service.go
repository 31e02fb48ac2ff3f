package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// authService is the concrete implementation of AuthService
type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	hasher *auth.Hasher
	log    zerolog.Logger

	newID func() string
	now   func() time.Time
}

// newAuthService creates a new AuthService
func newAuthService(users repository.UserRepository, tokens *auth.TokenManager, hasher *auth.Hasher, log zerolog.Logger) *authService {
	return &authService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		log:    log.With().Str("service", "auth").Logger(),
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// Register creates an account. Only an explicit "admin" role is honoured.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserPublic, error) {
	username := strings.TrimSpace(req.Username)

	var errs []validation.ValidationError
	switch {
	case username == "" || req.Password == "":
		errs = append(errs, validation.ValidationError{Field: "username", Message: "username and password are required"})
	default:
		if utf8.RuneCountInString(username) < minUsernameLength {
			errs = append(errs, validation.ValidationError{Field: "username", Message: "username must be at least 3 characters"})
		}
		if utf8.RuneCountInString(req.Password) < minPasswordLength {
			errs = append(errs, validation.ValidationError{Field: "password", Message: "password must be at least 6 characters"})
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	role := models.RoleUser
	if req.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Str("role", string(role)).Msg("User registered")
	return user.Public(), nil
}

// Login checks credentials and issues a token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, &ValidationFailedError{Errors: []validation.ValidationError{
			{Field: "username", Message: "username and password are required"},
		}}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrBadCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log.Warn().Str("username", username).Msg("Login rejected")
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user.Public(), Token: token}, nil
}

// Me returns the account behind the principal
func (s *authService) Me(ctx context.Context, principal *auth.Principal) (*models.UserPublic, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user.Public(), nil
}

// Authenticate resolves a bearer token to its principal
func (s *authService) Authenticate(token string) (*auth.Principal, error) {
	principal, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return principal, nil
}
