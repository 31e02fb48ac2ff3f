package api

import (
	"net/http"

	"github.com/digital-card-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamCards handles GET /v1/exports/cards?format=ndjson|json|csv
// Streams the export directly to the response
func (h *ExportHandler) StreamCards(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatNDJSON)
	if format != service.FormatNDJSON && format != service.FormatJSON && format != service.FormatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv"})
		return
	}

	principal := principalFrom(c)
	if !principal.IsAdmin() {
		respondError(c, h.log, service.ErrForbidden)
		return
	}

	h.log.Info().Str("format", format).Msg("Starting streaming export")

	if err := h.services.Export.StreamCards(c.Request.Context(), principal, c.Writer, format); err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
	}
}
