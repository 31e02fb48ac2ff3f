// Package share builds the public representations of a card: its URL,
// a vCard download and a QR code.
package share

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/models"
	"github.com/emersion/go-vcard"
	qrcode "github.com/skip2/go-qrcode"
)

// QR image bounds in pixels
const (
	DefaultQRSize = 300
	MinQRSize     = 128
	MaxQRSize     = 1024
)

var ErrQRSize = fmt.Errorf("size must be between %d and %d", MinQRSize, MaxQRSize)

// Domains are the public origins cards are served from
type Domains struct {
	AI   string
	Main string
	Dev  string
}

// Linker maps cards to their public URL. The serving domain depends on the
// cover preset; custom covers use the main domain.
type Linker struct {
	domains     Domains
	development bool
}

func NewLinker(domains Domains, development bool) *Linker {
	return &Linker{domains: domains, development: development}
}

// DomainFor returns the origin serving cards with the given cover path
func (l *Linker) DomainFor(imageCover string) string {
	if l.development {
		return l.domains.Dev
	}
	if p, ok := cover.ByPath(imageCover); ok && p.Site == cover.SiteAI {
		return l.domains.AI
	}
	return l.domains.Main
}

func (l *Linker) CardURL(card *models.Card) string {
	return strings.TrimRight(l.DomainFor(card.ImageCover), "/") + "/" + card.Slug
}

// VCard encodes the card as a vCard 3.0 document
func VCard(card *models.Card, url string) ([]byte, error) {
	if card == nil {
		return nil, errors.New("card is required")
	}

	c := make(vcard.Card)
	c.SetValue(vcard.FieldVersion, "3.0")
	c.SetValue(vcard.FieldFormattedName, card.Name)

	// family name is the last word, matching how cards were exported before
	parts := strings.Fields(card.Name)
	name := &vcard.Name{}
	if len(parts) > 0 {
		name.FamilyName = parts[len(parts)-1]
		name.GivenName = strings.Join(parts[:len(parts)-1], " ")
	}
	c.SetName(name)

	if card.Company != "" {
		c.SetValue(vcard.FieldOrganization, card.Company)
	}
	if card.Title != "" {
		c.SetValue(vcard.FieldTitle, card.Title)
	}

	for i, phone := range []string{card.Phone1, card.Phone2} {
		if phone == "" {
			continue
		}
		kind := vcard.TypeWork
		if i > 0 {
			kind = vcard.TypeCell
		}
		c.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  phone,
			Params: vcard.Params{vcard.ParamType: {kind}},
		})
	}

	for _, email := range []string{card.Email1, card.Email2} {
		if email != "" {
			c.AddValue(vcard.FieldEmail, email)
		}
	}

	if card.Address != "" {
		c.AddAddress(&vcard.Address{StreetAddress: card.Address})
	}
	if url != "" {
		c.SetValue(vcard.FieldURL, url)
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode vcard: %w", err)
	}
	return buf.Bytes(), nil
}

// QRCode renders content as a square PNG of size pixels; zero means DefaultQRSize
func QRCode(content string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < MinQRSize || size > MaxQRSize {
		return nil, ErrQRSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
