package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
)

func validInput(name string) *models.CardInput {
	return &models.CardInput{
		Name:       name,
		Title:      "CEO",
		Company:    "Acme",
		Phone1:     "0901234567",
		Email1:     "john@example.com",
		Address:    "12 Main Street",
		Avatar:     "data:image/png;base64,AAAA",
		ImageCover: "cover-vnsky",
	}
}

func strPtr(s string) *string { return &s }

func TestCardService_Create(t *testing.T) {
	f := newFixture()
	f.cards.Seed(&models.Card{ID: "c0", Slug: "nguyen-van-a"})

	card, err := f.svc.Card.Create(context.Background(), admin, validInput("Nguyễn Văn A"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if card.Slug != "nguyen-van-a-1" {
		t.Errorf("Slug = %q, want nguyen-van-a-1", card.Slug)
	}
	if card.UserID != admin.UserID || card.ImageCover != "/cover-vnsky.png" {
		t.Errorf("unexpected card: %+v", card)
	}
	if got := f.publisher.Published(); len(got) != 1 || got[0] != events.SubjectCardCreated {
		t.Errorf("published = %v", got)
	}
	if url := f.svc.Card.CardURL(card); url != "https://ai.example.com/nguyen-van-a-1" {
		t.Errorf("CardURL = %q", url)
	}
}

func TestCardService_CreateOnBehalfOfUser(t *testing.T) {
	const ownerID = "5f0c2d8e-3b4a-4c1e-9f6d-2a7b8c9d0e1f"
	f := newFixture()
	in := validInput("Jane Doe")
	in.UserID = ownerID

	card, err := f.svc.Card.Create(context.Background(), admin, in)
	if err != nil {
		t.Fatal(err)
	}
	if card.UserID != ownerID {
		t.Errorf("UserID = %q, want %q", card.UserID, ownerID)
	}

	in = validInput("Jane Doe")
	in.UserID = "not-a-uuid"
	_, err = f.svc.Card.Create(context.Background(), admin, in)
	var verr *service.ValidationFailedError
	if !errors.As(err, &verr) || len(verr.Errors) != 1 || verr.Errors[0].Field != "userId" {
		t.Fatalf("expected userId validation error, got %v", err)
	}
	if f.cards.CreateCalls != 1 {
		t.Errorf("invalid owner must not reach the store, got %d creates", f.cards.CreateCalls)
	}
}

func TestCardService_CreateRejections(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Card.Create(context.Background(), member, validInput("Jane")); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	in := validInput("Jane")
	in.Email1 = "nope"
	in.Address = "abc"
	_, err := f.svc.Card.Create(context.Background(), admin, in)
	var verr *service.ValidationFailedError
	if !errors.As(err, &verr) || len(verr.Errors) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", err)
	}
	if f.cards.CreateCalls != 0 {
		t.Error("invalid input must not reach the store")
	}
}

func TestCardService_GetBySlugCountsViews(t *testing.T) {
	f := newFixture()
	f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", Views: 4})

	card, err := f.svc.Card.GetBySlug(context.Background(), "john-smith")
	if err != nil {
		t.Fatal(err)
	}
	if card.Views != 5 || f.cards.Cards["john-smith"].Views != 5 {
		t.Errorf("views not counted: returned %d, stored %d", card.Views, f.cards.Cards["john-smith"].Views)
	}

	if _, err := f.svc.Card.GetBySlug(context.Background(), "nobody"); !errors.Is(err, repository.ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCardService_List(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.cards.Seed(
		&models.Card{ID: "c1", Slug: "a", UserID: member.UserID, CreatedAt: now.Add(-time.Hour)},
		&models.Card{ID: "c2", Slug: "b", UserID: admin.UserID, CreatedAt: now},
	)

	all, err := f.svc.Card.List(context.Background(), admin)
	if err != nil || len(all) != 2 || all[0].Slug != "b" {
		t.Errorf("admin list = %v, %v", all, err)
	}

	own, err := f.svc.Card.List(context.Background(), member)
	if err != nil || len(own) != 1 || own[0].Slug != "a" {
		t.Errorf("member list = %v, %v", own, err)
	}
}

func TestCardService_Update(t *testing.T) {
	t.Run("owner renames without changing slug", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", Name: "John Smith", UserID: member.UserID})

		card, err := f.svc.Card.Update(context.Background(), member, "john-smith", &models.CardPatch{Name: strPtr("Johnny Smith")})
		if err != nil {
			t.Fatal(err)
		}
		if card.Slug != "john-smith" || card.Name != "Johnny Smith" {
			t.Errorf("unexpected card: %+v", card)
		}
	})

	t.Run("new slug is normalized", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", UserID: member.UserID})

		card, err := f.svc.Card.Update(context.Background(), admin, "john-smith", &models.CardPatch{Slug: strPtr("  John Đoàn ")})
		if err != nil {
			t.Fatal(err)
		}
		if card.Slug != "john-doan" || f.cards.Cards["john-doan"] == nil {
			t.Errorf("Slug = %q", card.Slug)
		}
	})

	t.Run("taken slug conflicts", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(
			&models.Card{ID: "c1", Slug: "john-smith", UserID: member.UserID},
			&models.Card{ID: "c2", Slug: "jane-doe", UserID: admin.UserID},
		)

		_, err := f.svc.Card.Update(context.Background(), member, "john-smith", &models.CardPatch{Slug: strPtr("jane-doe")})
		if !errors.Is(err, repository.ErrSlugTaken) {
			t.Errorf("expected ErrSlugTaken, got %v", err)
		}
		if f.cards.UpdateCalls != 0 {
			t.Error("conflicting update must not be written")
		}
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", UserID: "someone-else"})

		_, err := f.svc.Card.Update(context.Background(), member, "john-smith", &models.CardPatch{Name: strPtr("X Y")})
		if !errors.Is(err, service.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("patched fields are trimmed", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", Name: "John Smith", UserID: member.UserID})

		card, err := f.svc.Card.Update(context.Background(), member, "john-smith", &models.CardPatch{
			Name:   strPtr(" Alice "),
			Email1: strPtr(" alice@example.com\t"),
		})
		if err != nil {
			t.Fatal(err)
		}
		stored := f.cards.Cards["john-smith"]
		if card.Name != "Alice" || stored.Name != "Alice" || stored.Email1 != "alice@example.com" {
			t.Errorf("fields not trimmed: returned %q, stored %q / %q", card.Name, stored.Name, stored.Email1)
		}
	})

	t.Run("blank required field", func(t *testing.T) {
		f := newFixture()
		f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", UserID: member.UserID})

		_, err := f.svc.Card.Update(context.Background(), member, "john-smith", &models.CardPatch{Title: strPtr("  ")})
		var verr *service.ValidationFailedError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationFailedError, got %v", err)
		}
	})
}

func TestCardService_Delete(t *testing.T) {
	f := newFixture()
	f.cards.Seed(&models.Card{ID: "c1", Slug: "john-smith", UserID: "someone-else"})

	if err := f.svc.Card.Delete(context.Background(), member, "john-smith"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.Card.Delete(context.Background(), admin, "john-smith"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := f.cards.Cards["john-smith"]; ok {
		t.Error("card still stored")
	}
	if err := f.svc.Card.Delete(context.Background(), admin, "john-smith"); !errors.Is(err, repository.ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCardService_VCardAndQRCode(t *testing.T) {
	f := newFixture()
	f.cards.Seed(&models.Card{
		ID: "c1", Slug: "john-smith", Name: "John Smith", Company: "Acme",
		Phone1: "0901234567", Email1: "john@example.com", ImageCover: "/cover-vns.png",
	})

	vcf, err := f.svc.Card.VCard(context.Background(), "john-smith")
	if err != nil {
		t.Fatalf("VCard failed: %v", err)
	}
	text := string(vcf)
	for _, want := range []string{"FN:John Smith", "ORG:Acme", "https://main.example.com/john-smith"} {
		if !strings.Contains(text, want) {
			t.Errorf("vcard missing %q:\n%s", want, text)
		}
	}

	png, err := f.svc.Card.QRCode(context.Background(), "john-smith", 0)
	if err != nil {
		t.Fatalf("QRCode failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	_, err = f.svc.Card.QRCode(context.Background(), "john-smith", 5000)
	var pre *service.PreconditionError
	if !errors.As(err, &pre) {
		t.Errorf("expected PreconditionError for oversized QR, got %v", err)
	}
}
