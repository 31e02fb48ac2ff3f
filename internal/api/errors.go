package api

import (
	"errors"
	"net/http"

	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
	"github.com/digital-card-api/internal/sheet"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError maps service and store errors onto HTTP responses
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		pre       *service.PreconditionError
		invalid   *service.ValidationFailedError
		persist   *service.PersistenceError
		headerErr *sheet.HeaderError
	)

	switch {
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrCardNotFound),
		errors.Is(err, repository.ErrJobNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrSlugTaken), errors.Is(err, repository.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &headerErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   headerErr.Error(),
			"missing": headerErr.Missing,
			"found":   headerErr.Found,
		})
	case errors.As(err, &pre):
		c.JSON(http.StatusBadRequest, gin.H{"error": pre.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": invalid.Errors})
	case errors.As(err, &persist):
		log.Error().Err(err).Str("op", persist.Op).Msg("Persistence failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save data"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
