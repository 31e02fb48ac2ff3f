package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/config"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/mocks"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
	"github.com/digital-card-api/internal/sheet"
	"github.com/rs/zerolog"
)

const csvHeader = "Họ và tên,Chức vụ,Tên công ty,Số điện thoại 1,Số điện thoại 2,Email 1,Email 2,Địa chỉ,Ảnh bìa\n"

var (
	admin  = &auth.Principal{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	member = &auth.Principal{UserID: "user-1", Username: "member", Role: models.RoleUser}
)

func testConfig() *config.Config {
	return &config.Config{
		Env:    "test",
		Auth:   config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4},
		Import: config.ImportConfig{MaxUploadSize: sheet.DefaultMaxSize},
		Domains: config.DomainConfig{
			AI:   "https://ai.example.com",
			Main: "https://main.example.com",
			Dev:  "http://localhost:3000",
		},
	}
}

type fixture struct {
	svc       *service.Services
	cards     *mocks.MockCardRepository
	users     *mocks.MockUserRepository
	jobs      *mocks.MockImportJobRepository
	publisher *mocks.RecordingPublisher
}

func newFixture() *fixture {
	repos, cards, users, jobs := mocks.NewMockRepositories()
	publisher := &mocks.RecordingPublisher{}
	return &fixture{
		svc:       service.NewServices(repos, publisher, testConfig(), zerolog.Nop()),
		cards:     cards,
		users:     users,
		jobs:      jobs,
		publisher: publisher,
	}
}

func csvFile(body string) sheet.File {
	return sheet.FromBytes("cards.csv", sheet.ContentTypeCSV, []byte(csvHeader+body))
}

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

// assertCreated checks that CreatedCards lists the ids of the cards stored under slugs, in order
func assertCreated(t *testing.T, f *fixture, result *models.ImportResult, slugs ...string) {
	t.Helper()
	if len(result.CreatedCards) != len(slugs) {
		t.Fatalf("CreatedCards = %v, want %d ids", result.CreatedCards, len(slugs))
	}
	for i, s := range slugs {
		card := f.cards.Cards[s]
		if card == nil {
			t.Fatalf("no card stored under %q", s)
		}
		if card.ID == "" || result.CreatedCards[i] != card.ID {
			t.Errorf("CreatedCards[%d] = %q, want id %q of %s", i, result.CreatedCards[i], card.ID, s)
		}
	}
}

func TestImportCards_DuplicateNamesGetSuffixes(t *testing.T) {
	f := newFixture()
	file := csvFile(
		"John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n" +
			"John Smith,CTO,Acme,0907654321,,john2@example.com,,,VNS\n")

	result, err := f.svc.Import.ImportCards(context.Background(), file, admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}

	if !result.Success || result.SuccessRows != 2 || len(result.ErrorRows) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	assertCreated(t, f, result, "john-smith", "john-smith-1")
	if result.Message != "Success! Created 2 cards." {
		t.Errorf("Message = %q", result.Message)
	}
	if f.cards.BatchCreateCalls != 1 {
		t.Errorf("expected one batch write, got %d", f.cards.BatchCreateCalls)
	}

	card := f.cards.Cards["john-smith-1"]
	if card == nil {
		t.Fatal("john-smith-1 not stored")
	}
	if card.UserID != admin.UserID || card.ImageCover != "/cover-vns.png" || card.Views != 0 || card.Avatar != "" {
		t.Errorf("unexpected stored card: %+v", card)
	}
	if card.CreatedAt.IsZero() || !card.CreatedAt.Equal(card.UpdatedAt) {
		t.Errorf("timestamps not set: %v / %v", card.CreatedAt, card.UpdatedAt)
	}
}

func TestImportCards_ResolvesAgainstExistingSlugs(t *testing.T) {
	f := newFixture()
	f.cards.Seed(&models.Card{ID: "c0", Slug: "john-smith"}, &models.Card{ID: "c1", Slug: "john-smith-1"})

	result, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n"), admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}
	assertCreated(t, f, result, "john-smith-2")
}

func TestImportCards_SampleFilePartial(t *testing.T) {
	data, err := os.ReadFile(testdataPath(t, "cards_sample.csv"))
	if err != nil {
		t.Fatal(err)
	}

	f := newFixture()
	file := sheet.FromBytes("cards_sample.csv", sheet.ContentTypeCSV, data)
	result, err := f.svc.Import.ImportCards(context.Background(), file, admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}

	if result.Success {
		t.Error("partial import must not report success")
	}
	if result.TotalRows != 5 || result.SuccessRows != 3 || len(result.ErrorRows) != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Message != "Created 3/5 cards. 2 rows have errors." {
		t.Errorf("Message = %q", result.Message)
	}

	assertCreated(t, f, result, "nguyen-van-a", "le-van-c", "nguyen-van-a-1")

	if result.ErrorRows[0].Row != 3 || result.ErrorRows[1].Row != 5 {
		t.Errorf("error rows = %d, %d; want 3, 5", result.ErrorRows[0].Row, result.ErrorRows[1].Row)
	}
	if got := result.ErrorRows[0].Errors; len(got) != 1 || got[0] != "Row 3: Email 1 has invalid format" {
		t.Errorf("row 3 errors = %v", got)
	}
	if result.ErrorRows[1].Data.Name != "Phạm Thị D" {
		t.Errorf("row 5 data not echoed: %+v", result.ErrorRows[1].Data)
	}

	job := f.jobs.Jobs[result.JobID]
	if job == nil {
		t.Fatal("import job not recorded")
	}
	if job.Status != models.ImportStatusPartial || job.FailedRows != 2 || len(f.jobs.Errors[job.ID]) != 2 {
		t.Errorf("unexpected job: %+v", job)
	}
	if got := f.publisher.Published(); len(got) != 1 || got[0] != events.SubjectCardImported {
		t.Errorf("published = %v", got)
	}
}

func TestImportCards_AllRowsInvalid(t *testing.T) {
	f := newFixture()
	file := csvFile(
		"John Smith,CEO,Acme,0901234567,,not-an-email,,,DigiLife\n" +
			",CTO,Acme,0907654321,,jane@example.com,,,Unknown Cover\n")

	result, err := f.svc.Import.ImportCards(context.Background(), file, admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}

	if result.Success || result.SuccessRows != 0 || len(result.CreatedCards) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Message != "No cards created. All 2 rows have errors." {
		t.Errorf("Message = %q", result.Message)
	}
	if f.cards.BatchCreateCalls != 0 {
		t.Errorf("expected no write, got %d BatchCreate calls", f.cards.BatchCreateCalls)
	}

	second := result.ErrorRows[1].Errors
	if len(second) != 2 || second[0] != "Row 3: Họ và tên must not be empty" ||
		!strings.HasPrefix(second[1], "Row 3: Ảnh bìa must be one of: ") {
		t.Errorf("row 3 errors = %v", second)
	}
	if result.JobID != "" || f.jobs.CreateCalls != 0 {
		t.Errorf("nothing should be recorded, got job %q and %d job writes", result.JobID, f.jobs.CreateCalls)
	}
	if len(f.publisher.Published()) != 0 {
		t.Error("no event expected when nothing was created")
	}
}

func TestImportCards_AllRowsInvalidWithKeyIsRecorded(t *testing.T) {
	f := newFixture()
	file := csvFile("John Smith,CEO,Acme,0901234567,,not-an-email,,,DigiLife\n")

	first, err := f.svc.Import.ImportCardsIdempotent(context.Background(), file, admin, "key-bad")
	if err != nil {
		t.Fatalf("ImportCardsIdempotent failed: %v", err)
	}
	if f.cards.BatchCreateCalls != 0 {
		t.Errorf("expected no card write, got %d", f.cards.BatchCreateCalls)
	}
	job := f.jobs.Jobs[first.JobID]
	if job == nil || job.Status != models.ImportStatusFailed {
		t.Fatalf("expected failed job, got %+v", job)
	}

	second, err := f.svc.Import.ImportCardsIdempotent(context.Background(), file, admin, "key-bad")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.JobID != first.JobID || f.jobs.CreateCalls != 1 {
		t.Errorf("expected replay of %q, got %q after %d job writes", first.JobID, second.JobID, f.jobs.CreateCalls)
	}
}

func TestImportCards_RequiresAdmin(t *testing.T) {
	f := newFixture()
	file := csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n")

	_, err := f.svc.Import.ImportCards(context.Background(), file, member)
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	_, err = f.svc.Import.ImportCards(context.Background(), file, nil)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if f.cards.ListAllSlugsCalls != 0 || f.cards.BatchCreateCalls != 0 || f.jobs.CreateCalls != 0 {
		t.Error("store must not be touched before authorization")
	}
}

func TestImportCards_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		file  sheet.File
		check func(t *testing.T, err error)
	}{
		{
			name: "missing Email 1 column",
			file: sheet.FromBytes("cards.csv", sheet.ContentTypeCSV, []byte(
				"Họ và tên,Chức vụ,Tên công ty,Số điện thoại 1,Số điện thoại 2,E-mail,Email 2,Địa chỉ,Ảnh bìa\n"+
					"John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n")),
			check: func(t *testing.T, err error) {
				var headerErr *sheet.HeaderError
				if !errors.As(err, &headerErr) {
					t.Fatalf("expected HeaderError, got %v", err)
				}
				if len(headerErr.Missing) != 1 || headerErr.Missing[0] != models.HeaderEmail1 {
					t.Errorf("Missing = %v", headerErr.Missing)
				}
			},
		},
		{
			name: "unsupported type",
			file: sheet.FromBytes("cards.pdf", "application/pdf", []byte("%PDF")),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, sheet.ErrUnsupportedType) {
					t.Errorf("expected ErrUnsupportedType, got %v", err)
				}
			},
		},
		{
			name: "header only",
			file: csvFile(""),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, sheet.ErrNoData) {
					t.Errorf("expected ErrNoData, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Import.ImportCards(context.Background(), tt.file, admin)

			var pre *service.PreconditionError
			if !errors.As(err, &pre) {
				t.Fatalf("expected PreconditionError, got %T %v", err, err)
			}
			tt.check(t, err)
			if f.cards.BatchCreateCalls != 0 {
				t.Error("no write expected")
			}
		})
	}
}

func TestImportCards_IdempotencyKeyReplaysResult(t *testing.T) {
	f := newFixture()
	file := csvFile(
		"John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n" +
			"Jane Doe,CTO,Acme,abc,,jane@example.com,,,VNS\n")

	first, err := f.svc.Import.ImportCardsIdempotent(context.Background(), file, admin, "key-1")
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	second, err := f.svc.Import.ImportCardsIdempotent(context.Background(), file, admin, "key-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if f.cards.BatchCreateCalls != 1 {
		t.Errorf("replay must not import again, got %d BatchCreate calls", f.cards.BatchCreateCalls)
	}
	if second.JobID != first.JobID || second.Message != first.Message || len(second.ErrorRows) != 1 {
		t.Errorf("replayed result differs: %+v vs %+v", second, first)
	}

	// same key from another admin is a new request
	other := &auth.Principal{UserID: "admin-2", Role: models.RoleAdmin}
	if _, err := f.svc.Import.ImportCardsIdempotent(context.Background(), file, other, "key-1"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if f.cards.BatchCreateCalls != 2 {
		t.Errorf("expected a second import, got %d BatchCreate calls", f.cards.BatchCreateCalls)
	}
}

func TestImportCards_CommitFailure(t *testing.T) {
	f := newFixture()
	f.cards.BatchCreateFunc = func(ctx context.Context, cards []*models.Card) error {
		return errors.New("connection reset")
	}

	_, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n"), admin)

	var perr *service.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if f.jobs.CreateCalls != 0 {
		t.Error("failed import must not be recorded as a job")
	}
	if len(f.publisher.Published()) != 0 {
		t.Error("failed import must not publish")
	}
}

func TestImportCards_RetriesSlugCollision(t *testing.T) {
	f := newFixture()
	calls := 0
	f.cards.BatchCreateFunc = func(ctx context.Context, cards []*models.Card) error {
		calls++
		if calls == 1 {
			// another instance wins the slug between snapshot and commit
			f.cards.Seed(&models.Card{ID: "other", Slug: "john-smith"})
			return repository.ErrSlugTaken
		}
		f.cards.Seed(cards...)
		return nil
	}

	result, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n"), admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	assertCreated(t, f, result, "john-smith-1")
}

func TestImportCards_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture()
	f.cards.BatchCreateFunc = func(ctx context.Context, cards []*models.Card) error {
		return repository.ErrSlugTaken
	}

	_, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n"), admin)
	if !errors.Is(err, repository.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
	if f.cards.BatchCreateCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", f.cards.BatchCreateCalls)
	}
}

func TestImportCards_JobRecordingFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.jobs.CreateError = errors.New("disk full")

	result, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,john@example.com,,,DigiLife\n"), admin)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}
	if !result.Success || len(f.cards.Cards) != 1 {
		t.Errorf("cards must be created even when the job cannot be recorded: %+v", result)
	}
}

func TestImportService_GetJob(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Import.ImportCards(context.Background(),
		csvFile("John Smith,CEO,Acme,0901234567,,bad,,,DigiLife\nJane Doe,CTO,Acme,0901234567,,jane@example.com,,,VNS\n"), admin)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Import.GetJob(context.Background(), member, result.JobID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.Import.GetJob(context.Background(), admin, "missing"); !errors.Is(err, repository.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}

	resp, err := f.svc.Import.GetJob(context.Background(), admin, result.JobID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if resp.ErrorCount != 1 || len(resp.Errors) != 1 || resp.Errors[0].Row != 2 {
		t.Errorf("unexpected errors: %+v", resp)
	}
	if resp.ErrorReport != "/v1/imports/"+result.JobID+"/errors?format=csv" {
		t.Errorf("ErrorReport = %q", resp.ErrorReport)
	}
	if resp.CompletedAt == nil || resp.Status != models.ImportStatusPartial {
		t.Errorf("unexpected job: %+v", resp.ImportJob)
	}

	rows, err := f.svc.Import.GetJobErrors(context.Background(), admin, result.JobID)
	if err != nil || len(rows) != 1 {
		t.Errorf("GetJobErrors = %v, %v", rows, err)
	}
}
