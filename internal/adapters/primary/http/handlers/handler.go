package handlers

import (
	"github.com/gin-gonic/gin"

	"demand-forecast-service/internal/core/services"
)

type Handler struct {
	predictionSvc *services.PredictionService
}

func New(predictionSvc *services.PredictionService) *Handler {
	return &Handler{predictionSvc: predictionSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.Predict)
	r.POST("/predict-with-history", h.PredictWithHistory)
	r.POST("/retrain", h.Retrain)
	r.GET("/models/latest", h.LatestModel)
}
