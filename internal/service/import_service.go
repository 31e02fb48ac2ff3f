package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/sheet"
	"github.com/digital-card-api/internal/slug"
	"github.com/digital-card-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// jobErrorPreview caps the row errors embedded in a job response
const jobErrorPreview = 100

// importService is the concrete implementation of ImportService
type importService struct {
	repos     *repository.Repositories
	slugs     *SlugAllocator
	publisher events.Publisher
	maxSize   int64
	log       zerolog.Logger

	newID func() string
	now   func() time.Time
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, slugs *SlugAllocator, publisher events.Publisher, maxSize int64, log zerolog.Logger) *importService {
	if maxSize <= 0 {
		maxSize = sheet.DefaultMaxSize
	}
	return &importService{
		repos:     repos,
		slugs:     slugs,
		publisher: publisher,
		maxSize:   maxSize,
		log:       log.With().Str("service", "import").Logger(),
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// ImportCards creates one card per valid spreadsheet row
func (s *importService) ImportCards(ctx context.Context, file sheet.File, principal *auth.Principal) (*models.ImportResult, error) {
	return s.ImportCardsIdempotent(ctx, file, principal, "")
}

// ImportCardsIdempotent is ImportCards where a repeated non-empty key returns
// the stored result of the first request instead of importing again.
func (s *importService) ImportCardsIdempotent(ctx context.Context, file sheet.File, principal *auth.Principal, key string) (*models.ImportResult, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}

	if key != "" {
		if result, err := s.replay(ctx, principal.UserID, key); err != nil || result != nil {
			return result, err
		}
	}

	if err := sheet.CheckFile(file, s.maxSize); err != nil {
		return nil, precondition("invalid file", err)
	}

	records, err := sheet.Parse(file, s.maxSize)
	if err != nil {
		return nil, precondition("could not read file", err)
	}

	startTime := s.now()
	s.log.Info().
		Str("user_id", principal.UserID).
		Str("file", file.Name).
		Int("rows", len(records)).
		Msg("Starting card import")

	var out foldResult
	err = s.slugs.Allocate(ctx, func(taken slug.Set) error {
		out = s.foldRows(records, taken, principal.UserID, startTime)
		if len(out.accepted) == 0 {
			return nil
		}
		return s.repos.Card.BatchCreate(ctx, out.accepted)
	})
	if err != nil {
		s.log.Error().Err(err).Str("file", file.Name).Int("cards", len(out.accepted)).Msg("Import commit failed")
		var perr *PersistenceError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "create cards", Err: err}
	}

	result := summarize(len(records), out)
	if result.SuccessRows == 0 && key == "" {
		// no cards and no key: nothing is written
		s.log.Info().Str("file", file.Name).Int("rejected", len(out.rejected)).Msg("Import created no cards")
		return result, nil
	}
	job := s.recordJob(ctx, file.Name, principal.UserID, key, result, out.rejected, startTime)
	result.JobID = job.ID

	if result.SuccessRows > 0 {
		event := events.ImportEvent{
			JobID:        job.ID,
			UserID:       principal.UserID,
			TotalRows:    result.TotalRows,
			SuccessRows:  result.SuccessRows,
			ErrorRows:    len(result.ErrorRows),
			CreatedCards: result.CreatedCards,
			At:           s.now(),
		}
		if err := s.publisher.Publish(ctx, events.SubjectCardImported, event); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish import event")
		}
	}

	return result, nil
}

// replay returns the stored result for an idempotency key, or nil if the key is new
func (s *importService) replay(ctx context.Context, userID, key string) (*models.ImportResult, error) {
	job, err := s.repos.ImportJob.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, &PersistenceError{Op: "lookup import", Err: err}
	}
	if job == nil {
		return nil, nil
	}

	rowErrors, err := s.repos.ImportJob.GetErrors(ctx, job.ID, 0)
	if err != nil {
		return nil, &PersistenceError{Op: "load import errors", Err: err}
	}

	s.log.Info().Str("job_id", job.ID).Str("idempotency_key", key).Msg("Returning stored import result")
	return job.Result(rowErrors), nil
}

type foldResult struct {
	accepted []*models.Card
	created  []string
	rejected []models.RowError
}

// foldRows turns records into staged cards and rejected rows, in row order.
// A slug is reserved in taken only once its card is fully built.
func (s *importService) foldRows(records []sheet.Record, taken slug.Set, ownerID string, now time.Time) foldResult {
	out := foldResult{
		created:  []string{},
		rejected: []models.RowError{},
	}

	for _, rec := range records {
		if errs := validation.ValidateRow(rec.Row, rec.Number); len(errs) > 0 {
			out.rejected = append(out.rejected, models.RowError{Row: rec.Number, Errors: errs, Data: rec.Row})
			continue
		}

		card, err := s.buildCard(rec, taken, ownerID, now)
		if err != nil {
			out.rejected = append(out.rejected, models.RowError{
				Row:    rec.Number,
				Errors: []string{fmt.Sprintf("Row %d: failed to create card: %v", rec.Number, err)},
				Data:   rec.Row,
			})
			continue
		}

		taken.Add(card.Slug)
		out.accepted = append(out.accepted, card)
		out.created = append(out.created, card.ID)
	}
	return out
}

func (s *importService) buildCard(rec sheet.Record, taken slug.Set, ownerID string, now time.Time) (card *models.Card, err error) {
	defer func() {
		if r := recover(); r != nil {
			card, err = nil, fmt.Errorf("%v", r)
		}
	}()

	payload := validation.ToCardPayload(rec.Row)
	preset, ok := cover.ByID(payload.CoverImage)
	if !ok {
		return nil, fmt.Errorf("unknown cover %q", payload.CoverImage)
	}

	id := s.newID()
	return &models.Card{
		ID:         id,
		Slug:       slug.Resolve(baseSlug(payload.Name), taken),
		Name:       payload.Name,
		Title:      payload.Title,
		Company:    payload.Company,
		Phone1:     payload.Phone1,
		Phone2:     payload.Phone2,
		Email1:     payload.Email1,
		Email2:     payload.Email2,
		Address:    payload.Address,
		ImageCover: preset.Path,
		UserID:     ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func summarize(total int, out foldResult) *models.ImportResult {
	success := len(out.accepted)
	failed := len(out.rejected)

	result := &models.ImportResult{
		Success:      success > 0 && failed == 0,
		TotalRows:    total,
		SuccessRows:  success,
		ErrorRows:    out.rejected,
		CreatedCards: out.created,
	}

	switch {
	case failed == 0:
		result.Message = fmt.Sprintf("Success! Created %d cards.", success)
	case success > 0:
		result.Message = fmt.Sprintf("Created %d/%d cards. %d rows have errors.", success, total, failed)
	default:
		result.Message = fmt.Sprintf("No cards created. All %d rows have errors.", total)
	}
	return result
}

func importStatus(result *models.ImportResult) models.ImportStatus {
	switch {
	case result.Success:
		return models.ImportStatusCompleted
	case result.SuccessRows > 0:
		return models.ImportStatusPartial
	default:
		return models.ImportStatusFailed
	}
}

// recordJob stores the import outcome. The cards are already committed, so a
// failure here is logged and the caller still gets its result.
func (s *importService) recordJob(ctx context.Context, fileName, userID, key string, result *models.ImportResult, rejected []models.RowError, startTime time.Time) *models.ImportJob {
	completedAt := s.now()
	duration := completedAt.Sub(startTime)

	job := &models.ImportJob{
		ID:             s.newID(),
		UserID:         userID,
		FileName:       fileName,
		Status:         importStatus(result),
		IdempotencyKey: key,
		TotalRows:      result.TotalRows,
		SuccessRows:    result.SuccessRows,
		FailedRows:     len(rejected),
		CreatedCards:   result.CreatedCards,
		Message:        result.Message,
		DurationMs:     duration.Milliseconds(),
		CreatedAt:      startTime,
		CompletedAt:    &completedAt,
	}
	if result.TotalRows > 0 && duration.Seconds() > 0 {
		job.RowsPerSec = float64(result.TotalRows) / duration.Seconds()
	}

	if err := s.repos.ImportJob.Create(ctx, job, rejected); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record import job")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Int("total", job.TotalRows).
		Int("successful", job.SuccessRows).
		Int("failed", job.FailedRows).
		Int64("duration_ms", job.DurationMs).
		Float64("rows_per_sec", job.RowsPerSec).
		Msg("Import completed")

	return job
}

// GetJob retrieves an import job with a preview of its row errors
func (s *importService) GetJob(ctx context.Context, principal *auth.Principal, id string) (*models.JobResponse, error) {
	job, err := s.getJob(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	rowErrors, err := s.repos.ImportJob.GetErrors(ctx, id, jobErrorPreview)
	if err != nil {
		return nil, err
	}

	resp := &models.JobResponse{
		ImportJob:  *job,
		Errors:     rowErrors,
		ErrorCount: job.FailedRows,
	}
	if job.FailedRows > 0 {
		resp.ErrorReport = fmt.Sprintf("/v1/imports/%s/errors?format=csv", job.ID)
	}
	return resp, nil
}

// GetJobErrors retrieves every rejected row of an import job
func (s *importService) GetJobErrors(ctx context.Context, principal *auth.Principal, id string) ([]models.RowError, error) {
	if _, err := s.getJob(ctx, principal, id); err != nil {
		return nil, err
	}
	return s.repos.ImportJob.GetErrors(ctx, id, 0)
}

func (s *importService) getJob(ctx context.Context, principal *auth.Principal, id string) (*models.ImportJob, error) {
	if principal == nil {
		return nil, ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, ErrForbidden
	}

	job, err := s.repos.ImportJob.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}
