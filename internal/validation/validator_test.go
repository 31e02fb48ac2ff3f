package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/digital-card-api/internal/models"
)

func validRow() models.ImportRow {
	return models.ImportRow{
		Name:    "Nguyễn Văn A",
		Title:   "Giám đốc",
		Company: "VN Sky",
		Phone1:  "+84 (28) 123-4567",
		Email1:  "a@example.com",
		Cover:   "VN Sky",
	}
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(r *models.ImportRow)
		wantErrors []string
	}{
		{
			name:   "valid row",
			mutate: func(r *models.ImportRow) {},
		},
		{
			name:       "missing email 1",
			mutate:     func(r *models.ImportRow) { r.Email1 = "" },
			wantErrors: []string{"Row 2: Email 1 must not be empty"},
		},
		{
			name:       "whitespace-only name counts as empty",
			mutate:     func(r *models.ImportRow) { r.Name = "   " },
			wantErrors: []string{"Row 2: Họ và tên must not be empty"},
		},
		{
			name:       "bad email 1",
			mutate:     func(r *models.ImportRow) { r.Email1 = "not-an-email" },
			wantErrors: []string{"Row 2: Email 1 has invalid format"},
		},
		{
			name:       "bad optional email 2",
			mutate:     func(r *models.ImportRow) { r.Email2 = "x@y" },
			wantErrors: []string{"Row 2: Email 2 has invalid format"},
		},
		{
			name:       "letters in phone 2",
			mutate:     func(r *models.ImportRow) { r.Phone2 = "090-abc" },
			wantErrors: []string{"Row 2: Số điện thoại 2 has invalid format"},
		},
		{
			name:       "unknown cover",
			mutate:     func(r *models.ImportRow) { r.Cover = "Other" },
			wantErrors: []string{"Row 2: Ảnh bìa must be one of: DigiLife, VNS, VN Sky, VN Sky VNS"},
		},
		{
			name: "all rules are reported",
			mutate: func(r *models.ImportRow) {
				r.Title = ""
				r.Company = ""
				r.Phone1 = "abc"
				r.Email1 = "bad"
			},
			wantErrors: []string{
				"Row 2: Chức vụ must not be empty",
				"Row 2: Tên công ty must not be empty",
				"Row 2: Email 1 has invalid format",
				"Row 2: Số điện thoại 1 has invalid format",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(&row)
			got := ValidateRow(row, 2)

			if len(got) != len(tt.wantErrors) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.wantErrors), len(got), got)
			}
			for i := range got {
				if got[i] != tt.wantErrors[i] {
					t.Errorf("error %d = %q, want %q", i, got[i], tt.wantErrors[i])
				}
			}
		})
	}
}

func TestValidateRow_UsesRowNumber(t *testing.T) {
	row := validRow()
	row.Phone1 = ""

	errs := ValidateRow(row, 17)
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Row 17: ") {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestToCardPayload(t *testing.T) {
	row := models.ImportRow{
		Name:    "  Trần Thị B ",
		Title:   " CTO",
		Company: "VNS ",
		Phone1:  " 0901234567 ",
		Email1:  " b@example.com",
		Cover:   " VN Sky VNS ",
	}

	got := ToCardPayload(row)
	want := models.ProcessedCard{
		Name:       "Trần Thị B",
		Title:      "CTO",
		Company:    "VNS",
		Phone1:     "0901234567",
		Email1:     "b@example.com",
		CoverImage: "cover-vnsky-vns",
	}
	if got != want {
		t.Errorf("ToCardPayload() = %+v, want %+v", got, want)
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"phone2", "email2", "address"} {
		if strings.Contains(string(data), `"`+key+`"`) {
			t.Errorf("empty optional %q must be omitted: %s", key, data)
		}
	}
}

func TestToCardPayload_KeepsOptionalFields(t *testing.T) {
	row := validRow()
	row.Phone2 = " 0911 "
	row.Email2 = "c@example.com"
	row.Address = " 1 Lê Lợi, Q1 "

	got := ToCardPayload(row)
	if got.Phone2 != "0911" || got.Email2 != "c@example.com" || got.Address != "1 Lê Lợi, Q1" {
		t.Errorf("optional fields not carried: %+v", got)
	}
	if got.CoverImage != "cover-vnsky" {
		t.Errorf("CoverImage = %q, want cover-vnsky", got.CoverImage)
	}
}

func TestToCardPayload_DefaultCover(t *testing.T) {
	row := validRow()
	row.Cover = "unknown"

	if got := ToCardPayload(row).CoverImage; got != "cover-digilife" {
		t.Errorf("CoverImage = %q, want cover-digilife", got)
	}
}

func validInput() *models.CardInput {
	return &models.CardInput{
		Name:       "John Smith",
		Title:      "Engineer",
		Phone1:     "0901234567",
		Email1:     "john@example.com",
		Address:    "12 Main Street",
		Avatar:     "https://cdn.example.com/a.png",
		ImageCover: "/cover-vns.png",
	}
}

func TestValidateCardInput(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(in *models.CardInput)
		wantFields []string
	}{
		{name: "valid", mutate: func(in *models.CardInput) {}},
		{name: "missing avatar", mutate: func(in *models.CardInput) { in.Avatar = "" }, wantFields: []string{"avatar"}},
		{name: "short address", mutate: func(in *models.CardInput) { in.Address = "abcd" }, wantFields: []string{"address"}},
		{name: "bad email 2", mutate: func(in *models.CardInput) { in.Email2 = "nope" }, wantFields: []string{"email2"}},
		{name: "unknown cover path", mutate: func(in *models.CardInput) { in.ImageCover = "/x.png" }, wantFields: []string{"imageCover"}},
		{name: "inline cover", mutate: func(in *models.CardInput) { in.ImageCover = "data:image/jpeg;base64,/9j/4AAQ" }},
		{name: "owner uuid", mutate: func(in *models.CardInput) { in.UserID = "5f0c2d8e-3b4a-4c1e-9f6d-2a7b8c9d0e1f" }},
		{name: "owner not a uuid", mutate: func(in *models.CardInput) { in.UserID = "user-1" }, wantFields: []string{"userId"}},
		{
			name:       "missing name and title",
			mutate:     func(in *models.CardInput) { in.Name = " "; in.Title = "" },
			wantFields: []string{"name", "title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			errs := ValidateCardInput(in)

			if len(errs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.wantFields), len(errs), errs)
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
				}
			}
		})
	}
}

func TestValidateCardPatch(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name       string
		patch      models.CardPatch
		wantFields []string
	}{
		{name: "empty patch", patch: models.CardPatch{}},
		{name: "rename", patch: models.CardPatch{Name: str("Jane")}},
		{name: "blank title", patch: models.CardPatch{Title: str("  ")}, wantFields: []string{"title"}},
		{name: "slug normalized before check", patch: models.CardPatch{Slug: str("My New Slug")}},
		{name: "slug too short", patch: models.CardPatch{Slug: str("ab")}, wantFields: []string{"slug"}},
		{name: "slug with nothing usable", patch: models.CardPatch{Slug: str("!!!")}, wantFields: []string{"slug"}},
		{name: "bad phone", patch: models.CardPatch{Phone1: str("call me")}, wantFields: []string{"phone1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateCardPatch(&tt.patch)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.wantFields), len(errs), errs)
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
				}
			}
		})
	}
}
