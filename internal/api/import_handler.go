package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/digital-card-api/internal/service"
	"github.com/digital-card-api/internal/sheet"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports (multipart field "file").
// The import runs synchronously and returns its result.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	// Reject before the multipart body is read
	if p := principalFrom(c); p == nil || !p.IsAdmin() {
		err := service.ErrForbidden
		if p == nil {
			err = service.ErrUnauthorized
		}
		respondError(c, h.log, err)
		return
	}

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required (multipart field \"file\")"})
		return
	}

	result, err := h.services.Import.ImportCardsIdempotent(ctx, uploadedFile(header), principalFrom(c), idempotencyKey)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("job_id", result.JobID).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Int("created", result.SuccessRows).
		Int("rejected", len(result.ErrorRows)).
		Msg("Import request handled")

	c.JSON(http.StatusOK, result)
}

func uploadedFile(header *multipart.FileHeader) sheet.File {
	return sheet.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// DownloadTemplate handles GET /v1/imports/template?format=csv|xlsx
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", "attachment; filename=cards_template.csv")
		if err := sheet.WriteTemplateCSV(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("Failed to write CSV template")
		}
	case "xlsx":
		c.Header("Content-Type", sheet.ContentTypeXLSX)
		c.Header("Content-Disposition", "attachment; filename=cards_template.xlsx")
		if err := sheet.WriteTemplateXLSX(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("Failed to write XLSX template")
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: csv, xlsx"})
	}
}

// GetImportStatus handles GET /v1/imports/:job_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	job, err := h.services.Import.GetJob(c.Request.Context(), principalFrom(c), c.Param("job_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetImportErrors handles GET /v1/imports/:job_id/errors?format=json|csv
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	jobID := c.Param("job_id")

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, csv"})
		return
	}

	rowErrors, err := h.services.Import.GetJobErrors(c.Request.Context(), principalFrom(c), jobID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", jobID))
		if err := sheet.WriteErrorReport(c.Writer, rowErrors); err != nil {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to write error report")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"error_count": len(rowErrors),
		"errors":      rowErrors,
	})
}
