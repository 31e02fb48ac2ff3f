package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
)

func TestAuthService_RegisterLoginMe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	user, err := f.svc.Auth.Register(ctx, &models.RegisterRequest{Username: "  alice ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "alice" || user.Role != models.RoleUser {
		t.Errorf("unexpected user: %+v", user)
	}
	if stored := f.users.Users[user.ID]; stored == nil || stored.PasswordHash == "secret1" {
		t.Fatal("password must be stored hashed")
	}

	resp, err := f.svc.Auth.Login(ctx, &models.LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" || resp.User.ID != user.ID {
		t.Errorf("unexpected login response: %+v", resp)
	}

	principal, err := f.svc.Auth.Authenticate(resp.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if principal.UserID != user.ID || principal.IsAdmin() {
		t.Errorf("unexpected principal: %+v", principal)
	}

	me, err := f.svc.Auth.Me(ctx, principal)
	if err != nil || me.Username != "alice" {
		t.Errorf("Me = %+v, %v", me, err)
	}

	delete(f.users.Users, user.ID)
	if _, err := f.svc.Auth.Me(ctx, principal); !errors.Is(err, service.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_RegisterRules(t *testing.T) {
	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing password", models.RegisterRequest{Username: "alice"}},
		{"short username", models.RegisterRequest{Username: "al", Password: "secret1"}},
		{"short password", models.RegisterRequest{Username: "alice", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Auth.Register(context.Background(), &tt.req)
			var verr *service.ValidationFailedError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationFailedError, got %v", err)
			}
		})
	}

	f := newFixture()
	admin, err := f.svc.Auth.Register(context.Background(), &models.RegisterRequest{Username: "root", Password: "secret1", Role: models.RoleAdmin})
	if err != nil || admin.Role != models.RoleAdmin {
		t.Fatalf("admin register = %+v, %v", admin, err)
	}
	other, err := f.svc.Auth.Register(context.Background(), &models.RegisterRequest{Username: "bob", Password: "secret1", Role: "superuser"})
	if err != nil || other.Role != models.RoleUser {
		t.Errorf("unknown role must fall back to user: %+v, %v", other, err)
	}
	if _, err := f.svc.Auth.Register(context.Background(), &models.RegisterRequest{Username: "root", Password: "secret2"}); !errors.Is(err, repository.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_BadCredentials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Auth.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}

	for _, req := range []models.LoginRequest{
		{Username: "alice", Password: "wrong-password"},
		{Username: "nobody", Password: "secret1"},
	} {
		if _, err := f.svc.Auth.Login(ctx, &req); !errors.Is(err, service.ErrBadCredentials) {
			t.Errorf("Login(%s) expected ErrBadCredentials, got %v", req.Username, err)
		}
	}

	if _, err := f.svc.Auth.Authenticate("not-a-token"); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
