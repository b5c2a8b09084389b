package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/adapters/primary/http/dto"
)

func (h *Handler) Predict(c *gin.Context) {
	var req dto.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.predictionSvc.Predict(c.Request.Context(), req.Segment(), req.HorizonMonths, req.Confidence)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionResponse(result))
}

func (h *Handler) PredictWithHistory(c *gin.Context) {
	var req dto.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.predictionSvc.PredictWithHistory(c.Request.Context(), req.Segment(), req.HorizonMonths, req.Confidence)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionWithHistoryResponse(result))
}

func (h *Handler) Retrain(c *gin.Context) {
	var req dto.RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end := req.Range()
	meta, err := h.predictionSvc.Retrain(c.Request.Context(), start, end)
	if err != nil {
		log.WithError(err).Warn("retrain failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRetrainResponse(meta))
}

func (h *Handler) LatestModel(c *gin.Context) {
	meta, err := h.predictionSvc.LatestMetadata(c.Request.Context())
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if meta == nil {
		c.JSON(http.StatusOK, gin.H{"detail": "no models available yet"})
		return
	}

	c.JSON(http.StatusOK, meta)
}
