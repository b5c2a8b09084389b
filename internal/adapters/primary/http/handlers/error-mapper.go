package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrNoTrainedModel),
		errors.Is(err, domain.ErrNoSegmentHistory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrMissingLine),
		errors.Is(err, domain.ErrNoTrainingData),
		errors.Is(err, domain.ErrInsufficientHistory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Misconfiguration
	case errors.Is(err, domain.ErrNoDataSource):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		log.WithError(err).Error("unhandled domain error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
