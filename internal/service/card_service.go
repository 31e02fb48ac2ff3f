package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/share"
	"github.com/digital-card-api/internal/slug"
	"github.com/digital-card-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cardService is the concrete implementation of CardService
type cardService struct {
	cards     repository.CardRepository
	slugs     *SlugAllocator
	linker    *share.Linker
	publisher events.Publisher
	log       zerolog.Logger

	newID func() string
	now   func() time.Time
}

// newCardService creates a new CardService
func newCardService(cards repository.CardRepository, slugs *SlugAllocator, linker *share.Linker, publisher events.Publisher, log zerolog.Logger) *cardService {
	return &cardService{
		cards:     cards,
		slugs:     slugs,
		linker:    linker,
		publisher: publisher,
		log:       log.With().Str("service", "card").Logger(),
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// List returns every card for admins and the caller's own cards otherwise
func (s *cardService) List(ctx context.Context, principal *auth.Principal) ([]*models.Card, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	filter := repository.CardFilter{}
	if !principal.IsAdmin() {
		filter.UserID = principal.UserID
	}

	cards, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []*models.Card{}
	}
	return cards, nil
}

// Create stores a new card under a freshly allocated slug
func (s *cardService) Create(ctx context.Context, principal *auth.Principal, in *models.CardInput) (*models.Card, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	if errs := validation.ValidateCardInput(in); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}

	owner := principal.UserID
	if in.UserID != "" {
		owner = in.UserID
	}

	now := s.now()
	card := &models.Card{
		ID:         s.newID(),
		Name:       strings.TrimSpace(in.Name),
		Title:      strings.TrimSpace(in.Title),
		Company:    strings.TrimSpace(in.Company),
		Phone1:     strings.TrimSpace(in.Phone1),
		Phone2:     strings.TrimSpace(in.Phone2),
		Email1:     strings.TrimSpace(in.Email1),
		Email2:     strings.TrimSpace(in.Email2),
		Address:    strings.TrimSpace(in.Address),
		Avatar:     in.Avatar,
		ImageCover: coverPath(in.ImageCover),
		UserID:     owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.slugs.Allocate(ctx, func(taken slug.Set) error {
		card.Slug = slug.Resolve(baseSlug(card.Name), taken)
		return s.cards.Create(ctx, card)
	})
	if err != nil {
		var perr *PersistenceError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "create card", Err: err}
	}

	s.log.Info().Str("card_id", card.ID).Str("slug", card.Slug).Str("user_id", owner).Msg("Card created")
	s.publish(ctx, events.SubjectCardCreated, card)
	return card, nil
}

// GetBySlug returns a public card and counts the view
func (s *cardService) GetBySlug(ctx context.Context, slugValue string) (*models.Card, error) {
	card, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}

	if err := s.cards.IncrementViews(ctx, card.Slug); err != nil {
		s.log.Warn().Err(err).Str("slug", card.Slug).Msg("Failed to count card view")
	} else {
		card.Views++
	}
	return card, nil
}

// Update applies a partial update. A new slug must be free; name changes keep the slug.
func (s *cardService) Update(ctx context.Context, principal *auth.Principal, slugValue string, patch *models.CardPatch) (*models.Card, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}

	card, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(card.UserID) {
		return nil, ErrForbidden
	}

	if errs := validation.ValidateCardPatch(patch); len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}
	for _, field := range []*string{patch.Name, patch.Title, patch.Company, patch.Phone1, patch.Phone2, patch.Email1, patch.Email2, patch.Address} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if patch.ImageCover != nil {
		path := coverPath(*patch.ImageCover)
		patch.ImageCover = &path
	}
	if patch.Slug != nil {
		normalized := slug.Make(*patch.Slug)
		if normalized == card.Slug {
			patch.Slug = nil
		} else {
			patch.Slug = &normalized
		}
	}
	if patch.IsEmpty() {
		return card, nil
	}

	var updated *models.Card
	err = s.slugs.Exclusive(func() error {
		if patch.Slug != nil {
			exists, err := s.cards.SlugExists(ctx, *patch.Slug)
			if err != nil {
				return err
			}
			if exists {
				return repository.ErrSlugTaken
			}
		}
		updated, err = s.cards.Update(ctx, card.Slug, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("card_id", updated.ID).Str("slug", updated.Slug).Msg("Card updated")
	s.publish(ctx, events.SubjectCardUpdated, updated)
	return updated, nil
}

// Delete removes a card owned by the caller, or any card for admins
func (s *cardService) Delete(ctx context.Context, principal *auth.Principal, slugValue string) error {
	if principal == nil {
		return ErrUnauthorized
	}

	card, err := s.find(ctx, slugValue)
	if err != nil {
		return err
	}
	if !principal.CanManage(card.UserID) {
		return ErrForbidden
	}

	if err := s.cards.Delete(ctx, card.Slug); err != nil {
		return err
	}

	s.log.Info().Str("card_id", card.ID).Str("slug", card.Slug).Msg("Card deleted")
	s.publish(ctx, events.SubjectCardDeleted, card)
	return nil
}

// VCard renders the card as a vCard 3.0 contact
func (s *cardService) VCard(ctx context.Context, slugValue string) ([]byte, error) {
	card, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	return share.VCard(card, s.linker.CardURL(card))
}

// QRCode renders a PNG QR code pointing at the public card page
func (s *cardService) QRCode(ctx context.Context, slugValue string, size int) ([]byte, error) {
	card, err := s.find(ctx, slugValue)
	if err != nil {
		return nil, err
	}

	png, err := share.QRCode(s.linker.CardURL(card), size)
	if errors.Is(err, share.ErrQRSize) {
		return nil, precondition("invalid size", err)
	}
	return png, err
}

// CardURL returns the public link of a card
func (s *cardService) CardURL(card *models.Card) string {
	return s.linker.CardURL(card)
}

func (s *cardService) find(ctx context.Context, slugValue string) (*models.Card, error) {
	card, err := s.cards.FindBySlug(ctx, slugValue)
	if err != nil {
		return nil, fmt.Errorf("failed to load card: %w", err)
	}
	if card == nil {
		return nil, repository.ErrCardNotFound
	}
	return card, nil
}

func (s *cardService) publish(ctx context.Context, subject string, card *models.Card) {
	event := events.CardEvent{
		CardID: card.ID,
		Slug:   card.Slug,
		UserID: card.UserID,
		At:     s.now(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Str("slug", card.Slug).Msg("Failed to publish card event")
	}
}

// coverPath stores preset covers by image path; custom images are kept as given
func coverPath(v string) string {
	if preset, ok := cover.ByID(v); ok {
		return preset.Path
	}
	return v
}
