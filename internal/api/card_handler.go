package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/digital-card-api/internal/cover"
	"github.com/digital-card-api/internal/models"
	"github.com/digital-card-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CardHandler handles card endpoints
type CardHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(services *service.Services, log zerolog.Logger) *CardHandler {
	return &CardHandler{
		services: services,
		log:      log.With().Str("handler", "card").Logger(),
	}
}

// ListCovers handles GET /v1/covers
func (h *CardHandler) ListCovers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"covers": cover.All()})
}

// ListCards handles GET /v1/cards
func (h *CardHandler) ListCards(c *gin.Context) {
	cards, err := h.services.Card.List(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// CreateCard handles POST /v1/cards
func (h *CardHandler) CreateCard(c *gin.Context) {
	var in models.CardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	card, err := h.services.Card.Create(c.Request.Context(), principalFrom(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Card created successfully",
		"id":      card.ID,
		"card":    card,
		"url":     h.services.Card.CardURL(card),
	})
}

// GetCard handles GET /v1/cards/:slug
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.services.Card.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"card": card,
		"url":  h.services.Card.CardURL(card),
	})
}

// UpdateCard handles PUT /v1/cards/:slug
func (h *CardHandler) UpdateCard(c *gin.Context) {
	var patch models.CardPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	card, err := h.services.Card.Update(c.Request.Context(), principalFrom(c), c.Param("slug"), &patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Card updated successfully",
		"card":    card,
	})
}

// DeleteCard handles DELETE /v1/cards/:slug
func (h *CardHandler) DeleteCard(c *gin.Context) {
	if err := h.services.Card.Delete(c.Request.Context(), principalFrom(c), c.Param("slug")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Card deleted successfully"})
}

// DownloadVCard handles GET /v1/cards/:slug/vcard
func (h *CardHandler) DownloadVCard(c *gin.Context) {
	slug := c.Param("slug")
	data, err := h.services.Card.VCard(c.Request.Context(), slug)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.vcf", slug))
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", data)
}

// QRCode handles GET /v1/cards/:slug/qr?size=300
func (h *CardHandler) QRCode(c *gin.Context) {
	size := 0
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be an integer"})
			return
		}
		size = n
	}

	png, err := h.services.Card.QRCode(c.Request.Context(), c.Param("slug"), size)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
