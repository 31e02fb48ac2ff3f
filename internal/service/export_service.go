package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/share"
	"github.com/rs/zerolog"
)

// Export formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
	FormatCSV    = "csv"
)

// exportFlushEvery is how many records are written between flushes
const exportFlushEvery = 100

var cardCSVHeader = []string{
	"id", "slug", "url", "name", "title", "company", "phone1", "phone2", "email1", "email2",
	"address", "image_cover", "user_id", "views", "created_at", "updated_at",
}

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos  *repository.Repositories
	linker *share.Linker
	log    zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, linker *share.Linker, log zerolog.Logger) *exportService {
	return &exportService{
		repos:  repos,
		linker: linker,
		log:    log.With().Str("service", "export").Logger(),
	}
}

// StreamCards streams every card in the specified format
func (s *exportService) StreamCards(ctx context.Context, principal *auth.Principal, w http.ResponseWriter, format string) error {
	if principal == nil {
		return ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return ErrForbidden
	}

	s.log.Info().Str("format", format).Str("user_id", principal.UserID).Msg("Starting cards export")

	switch format {
	case FormatNDJSON:
		return s.streamNDJSON(ctx, w)
	case FormatJSON:
		return s.streamJSON(ctx, w)
	case FormatCSV:
		return s.streamCSV(ctx, w)
	default:
		return precondition("unsupported format", fmt.Errorf("%q (want ndjson, json or csv)", format))
	}
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=cards.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Card.StreamAll(ctx, func(card *models.Card) error {
		data, err := json.Marshal(card)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		if count%exportFlushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Cards export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=cards.json")

	w.Write([]byte("["))
	first := true

	err := s.repos.Card.StreamAll(ctx, func(card *models.Card) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(card)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=cards.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write(cardCSVHeader)

	return s.repos.Card.StreamAll(ctx, func(card *models.Card) error {
		return writer.Write([]string{
			card.ID,
			card.Slug,
			s.linker.CardURL(card),
			card.Name,
			card.Title,
			card.Company,
			card.Phone1,
			card.Phone2,
			card.Email1,
			card.Email2,
			card.Address,
			card.ImageCover,
			card.UserID,
			strconv.FormatInt(card.Views, 10),
			card.CreatedAt.Format(time.RFC3339),
			card.UpdatedAt.Format(time.RFC3339),
		})
	})
}

// GetCount returns the number of stored records for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "cards":
		return s.repos.Card.Count(ctx)
	case "users":
		return s.repos.User.Count(ctx)
	case "imports":
		return s.repos.ImportJob.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
