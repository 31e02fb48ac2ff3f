package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/slug"
	"github.com/google/uuid"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[0-9+\-\s()]+$`)
)

// MinAddressLength applies to cards created or edited through the API
const MinAddressLength = 5

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRow checks one spreadsheet row and returns every failing rule,
// formatted as "Row <n>: <column> <problem>". An empty result means valid.
func ValidateRow(row models.ImportRow, rowNumber int) []string {
	var errors []string
	add := func(header, problem string) {
		errors = append(errors, fmt.Sprintf("Row %d: %s %s", rowNumber, header, problem))
	}

	name := strings.TrimSpace(row.Name)
	title := strings.TrimSpace(row.Title)
	company := strings.TrimSpace(row.Company)
	phone1 := strings.TrimSpace(row.Phone1)
	phone2 := strings.TrimSpace(row.Phone2)
	email1 := strings.TrimSpace(row.Email1)
	email2 := strings.TrimSpace(row.Email2)
	coverName := strings.TrimSpace(row.Cover)

	// Required fields
	if name == "" {
		add(models.HeaderName, "must not be empty")
	}
	if title == "" {
		add(models.HeaderTitle, "must not be empty")
	}
	if company == "" {
		add(models.HeaderCompany, "must not be empty")
	}
	if phone1 == "" {
		add(models.HeaderPhone1, "must not be empty")
	}
	if email1 == "" {
		add(models.HeaderEmail1, "must not be empty")
	}
	if coverName == "" {
		add(models.HeaderCover, "must not be empty")
	}

	// Formats, only for values that are present
	if email1 != "" && !emailRegex.MatchString(email1) {
		add(models.HeaderEmail1, "has invalid format")
	}
	if email2 != "" && !emailRegex.MatchString(email2) {
		add(models.HeaderEmail2, "has invalid format")
	}
	if phone1 != "" && !phoneRegex.MatchString(phone1) {
		add(models.HeaderPhone1, "has invalid format")
	}
	if phone2 != "" && !phoneRegex.MatchString(phone2) {
		add(models.HeaderPhone2, "has invalid format")
	}

	if coverName != "" {
		if _, ok := cover.ByName(coverName); !ok {
			add(models.HeaderCover, "must be one of: "+strings.Join(cover.Names(), ", "))
		}
	}

	return errors
}

// ToCardPayload normalizes a row that passed ValidateRow.
// Unknown cover names fall back to the default preset.
func ToCardPayload(row models.ImportRow) models.ProcessedCard {
	preset, ok := cover.ByName(strings.TrimSpace(row.Cover))
	if !ok {
		preset = cover.Default()
	}

	return models.ProcessedCard{
		Name:       strings.TrimSpace(row.Name),
		Title:      strings.TrimSpace(row.Title),
		Company:    strings.TrimSpace(row.Company),
		Phone1:     strings.TrimSpace(row.Phone1),
		Phone2:     strings.TrimSpace(row.Phone2),
		Email1:     strings.TrimSpace(row.Email1),
		Email2:     strings.TrimSpace(row.Email2),
		Address:    strings.TrimSpace(row.Address),
		CoverImage: preset.ID,
	}
}

// ValidateCardInput validates the body of a single-card create
func ValidateCardInput(in *models.CardInput) []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"name", in.Name},
		{"title", in.Title},
		{"phone1", in.Phone1},
		{"email1", in.Email1},
		{"address", in.Address},
		{"avatar", in.Avatar},
		{"imageCover", in.ImageCover},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, ValidationError{Field: r.field, Message: r.field + " is required"})
		}
	}

	errors = append(errors, checkFormats(in.Phone1, in.Phone2, in.Email1, in.Email2, in.Address, in.ImageCover)...)

	if in.UserID != "" {
		if _, err := uuid.Parse(in.UserID); err != nil {
			errors = append(errors, ValidationError{Field: "userId", Message: "userId must be a valid UUID", Value: in.UserID})
		}
	}
	return errors
}

// ValidateCardPatch validates the fields present in a partial update.
// A patched slug is checked after normalization.
func ValidateCardPatch(p *models.CardPatch) []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		value *string
	}{
		{"name", p.Name},
		{"title", p.Title},
		{"phone1", p.Phone1},
		{"email1", p.Email1},
		{"address", p.Address},
		{"avatar", p.Avatar},
		{"imageCover", p.ImageCover},
	}
	for _, r := range required {
		if r.value != nil && strings.TrimSpace(*r.value) == "" {
			errors = append(errors, ValidationError{Field: r.field, Message: r.field + " must not be empty"})
		}
	}

	if p.Slug != nil {
		normalized := slug.Make(*p.Slug)
		if !slug.IsValid(normalized) {
			errors = append(errors, ValidationError{
				Field:   "slug",
				Message: fmt.Sprintf("slug must be %d-%d characters of lowercase letters, numbers and single hyphens", slug.MinLength, slug.MaxLength),
				Value:   *p.Slug,
			})
		}
	}

	errors = append(errors, checkFormats(deref(p.Phone1), deref(p.Phone2), deref(p.Email1), deref(p.Email2), deref(p.Address), deref(p.ImageCover))...)
	return errors
}

// checkFormats validates shapes of non-empty values; emptiness is checked by the caller
func checkFormats(phone1, phone2, email1, email2, address, imageCover string) []ValidationError {
	var errors []ValidationError

	for _, f := range []struct{ field, value string }{{"email1", email1}, {"email2", email2}} {
		if v := strings.TrimSpace(f.value); v != "" && !emailRegex.MatchString(v) {
			errors = append(errors, ValidationError{Field: f.field, Message: "invalid email format", Value: f.value})
		}
	}
	for _, f := range []struct{ field, value string }{{"phone1", phone1}, {"phone2", phone2}} {
		if v := strings.TrimSpace(f.value); v != "" && !phoneRegex.MatchString(v) {
			errors = append(errors, ValidationError{Field: f.field, Message: "invalid phone format", Value: f.value})
		}
	}

	if v := strings.TrimSpace(address); v != "" && len([]rune(v)) < MinAddressLength {
		errors = append(errors, ValidationError{
			Field:   "address",
			Message: fmt.Sprintf("address must be at least %d characters", MinAddressLength),
			Value:   address,
		})
	}

	if v := strings.TrimSpace(imageCover); v != "" && !cover.IsValidImageCover(v) {
		errors = append(errors, ValidationError{
			Field:   "imageCover",
			Message: "imageCover must be a preset cover or an inline image",
		})
	}

	return errors
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
