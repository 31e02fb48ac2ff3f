package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
	"github.com/lib/pq"
)

// cardRepo is the concrete implementation of CardRepository
type cardRepo struct {
	db *database.DB
}

// NewCardRepo creates a new card repository
func NewCardRepo(db *database.DB) CardRepository {
	return &cardRepo{db: db}
}

const cardColumns = `id, slug, name, title, company, phone1, phone2, email1, email2,
	address, avatar, image_cover, user_id, views, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(s rowScanner) (*models.Card, error) {
	var c models.Card
	err := s.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Title, &c.Company, &c.Phone1, &c.Phone2,
		&c.Email1, &c.Email2, &c.Address, &c.Avatar, &c.ImageCover, &c.UserID,
		&c.Views, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func cardValues(c *models.Card) []interface{} {
	return []interface{}{
		c.ID, c.Slug, c.Name, c.Title, c.Company, c.Phone1, c.Phone2,
		c.Email1, c.Email2, c.Address, c.Avatar, c.ImageCover, c.UserID,
		c.Views, c.CreatedAt, c.UpdatedAt,
	}
}

// Create inserts a new card
func (r *cardRepo) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query, cardValues(card)...)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// BatchCreate inserts all cards with COPY inside one transaction.
// Any failure rolls back the whole batch.
func (r *cardRepo) BatchCreate(ctx context.Context, cards []*models.Card) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("cards",
		"id", "slug", "name", "title", "company", "phone1", "phone2", "email1", "email2",
		"address", "avatar", "image_cover", "user_id", "views", "created_at", "updated_at",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, card := range cards {
		if _, err := stmt.ExecContext(ctx, cardValues(card)...); err != nil {
			return fmt.Errorf("failed to stage card %s: %w", card.Slug, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// FindBySlug retrieves a card by slug
func (r *cardRepo) FindBySlug(ctx context.Context, slug string) (*models.Card, error) {
	card, err := scanCard(r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return card, err
}

// SlugExists checks if a card with the given slug exists
func (r *cardRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM cards WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// ListAllSlugs returns every stored slug
func (r *cardRepo) ListAllSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT slug FROM cards")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// List returns cards newest first
func (r *cardRepo) List(ctx context.Context, filter CardFilter) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards`
	var args []interface{}
	if filter.UserID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []*models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// Update applies the non-nil patch fields to the card with the given slug
func (r *cardRepo) Update(ctx context.Context, slug string, patch *models.CardPatch) (*models.Card, error) {
	set, args := buildCardUpdate(patch, time.Now())
	args = append(args, slug)
	query := fmt.Sprintf(`UPDATE cards SET %s WHERE slug = $%d RETURNING %s`, set, len(args), cardColumns)

	card, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrCardNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	return card, err
}

// buildCardUpdate renders the SET clause for a patch; updated_at is always set
func buildCardUpdate(patch *models.CardPatch, now time.Time) (string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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
	add("image_cover", patch.ImageCover)

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	return strings.Join(sets, ", "), args
}

// Delete removes the card with the given slug
func (r *cardRepo) Delete(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cards WHERE slug = $1", slug)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCardNotFound
	}
	return nil
}

// IncrementViews bumps the view counter
func (r *cardRepo) IncrementViews(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE cards SET views = views + 1 WHERE slug = $1", slug)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCardNotFound
	}
	return nil
}

// Count returns the total number of cards
func (r *cardRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count)
	return count, err
}

// StreamAll streams all cards for export (memory efficient)
func (r *cardRepo) StreamAll(ctx context.Context, callback func(*models.Card) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return err
		}
		if err := callback(card); err != nil {
			return err
		}
	}

	return rows.Err()
}
