package models

import (
	"time"
)

// Card represents a published business card
type Card struct {
	ID         string    `json:"id" db:"id" bson:"_id"`
	Slug       string    `json:"slug" db:"slug" bson:"slug"`
	Name       string    `json:"name" db:"name" bson:"name"`
	Title      string    `json:"title" db:"title" bson:"title"`
	Company    string    `json:"company,omitempty" db:"company" bson:"company,omitempty"`
	Phone1     string    `json:"phone1" db:"phone1" bson:"phone1"`
	Phone2     string    `json:"phone2,omitempty" db:"phone2" bson:"phone2,omitempty"`
	Email1     string    `json:"email1" db:"email1" bson:"email1"`
	Email2     string    `json:"email2,omitempty" db:"email2" bson:"email2,omitempty"`
	Address    string    `json:"address" db:"address" bson:"address"`
	Avatar     string    `json:"avatar" db:"avatar" bson:"avatar"`
	ImageCover string    `json:"imageCover" db:"image_cover" bson:"imageCover"`
	UserID     string    `json:"userId" db:"user_id" bson:"userId"`
	Views      int64     `json:"views" db:"views" bson:"views"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// CardInput is the body of POST /v1/cards
type CardInput struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Phone1     string `json:"phone1"`
	Phone2     string `json:"phone2"`
	Email1     string `json:"email1"`
	Email2     string `json:"email2"`
	Address    string `json:"address"`
	Avatar     string `json:"avatar"`
	ImageCover string `json:"imageCover"`
	UserID     string `json:"userId,omitempty"` // admins may create on behalf of a user
}

// CardPatch is a partial update; nil fields are left unchanged
type CardPatch struct {
	Slug       *string `json:"slug,omitempty"`
	Name       *string `json:"name,omitempty"`
	Title      *string `json:"title,omitempty"`
	Company    *string `json:"company,omitempty"`
	Phone1     *string `json:"phone1,omitempty"`
	Phone2     *string `json:"phone2,omitempty"`
	Email1     *string `json:"email1,omitempty"`
	Email2     *string `json:"email2,omitempty"`
	Address    *string `json:"address,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	ImageCover *string `json:"imageCover,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p *CardPatch) IsEmpty() bool {
	return p.Slug == nil && p.Name == nil && p.Title == nil && p.Company == nil &&
		p.Phone1 == nil && p.Phone2 == nil && p.Email1 == nil && p.Email2 == nil &&
		p.Address == nil && p.Avatar == nil && p.ImageCover == nil
}

// Apply copies the patched fields onto card
func (p *CardPatch) Apply(card *Card) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&card.Slug, p.Slug)
	set(&card.Name, p.Name)
	set(&card.Title, p.Title)
	set(&card.Company, p.Company)
	set(&card.Phone1, p.Phone1)
	set(&card.Phone2, p.Phone2)
	set(&card.Email1, p.Email1)
	set(&card.Email2, p.Email2)
	set(&card.Address, p.Address)
	set(&card.Avatar, p.Avatar)
	set(&card.ImageCover, p.ImageCover)
}
