package dto

import (
	"time"

	"demand-forecast-service/internal/core/domain"
	"demand-forecast-service/internal/core/services"
)

const monthLayout = "2006-01-02"

type PredictionRequest struct {
	VehicleType   string  `json:"vehicle_type" binding:"required"`
	Brand         string  `json:"brand" binding:"required"`
	Model         string  `json:"model" binding:"required"`
	Line          string  `json:"line"`
	HorizonMonths int     `json:"horizon_months" binding:"omitempty,gt=0,lte=24"`
	Confidence    float64 `json:"confidence" binding:"omitempty,gte=0.5,lte=0.99"`
}

func (r PredictionRequest) Segment() domain.Segment {
	return domain.Segment{
		VehicleType: r.VehicleType,
		Brand:       r.Brand,
		Model:       r.Model,
		Line:        r.Line,
	}
}

type MonthlyPredictionDTO struct {
	Month   string  `json:"month"`
	Demand  float64 `json:"demand"`
	LowerCI float64 `json:"lower_ci"`
	UpperCI float64 `json:"upper_ci"`
}

type PredictionResponse struct {
	Predictions  []MonthlyPredictionDTO `json:"predictions"`
	ModelVersion string                 `json:"model_version"`
	Metrics      map[string]float64     `json:"metrics,omitempty"`
}

type HistoricalPointDTO struct {
	Month      string  `json:"month"`
	SalesCount float64 `json:"sales_count"`
}

type PredictionWithHistoryResponse struct {
	Predictions  []MonthlyPredictionDTO `json:"predictions"`
	History      []HistoricalPointDTO   `json:"history"`
	Segment      domain.Segment         `json:"segment"`
	ModelVersion string                 `json:"model_version"`
	TrainedAt    string                 `json:"trained_at,omitempty"`
	Metrics      map[string]float64     `json:"metrics,omitempty"`
}

type RetrainRequest struct {
	StartDate string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

func (r RetrainRequest) Range() (start, end *time.Time) {
	if t, err := time.Parse(monthLayout, r.StartDate); err == nil && r.StartDate != "" {
		start = &t
	}
	if t, err := time.Parse(monthLayout, r.EndDate); err == nil && r.EndDate != "" {
		end = &t
	}
	return start, end
}

type RetrainResponse struct {
	Version   string             `json:"version"`
	Metrics   map[string]float64 `json:"metrics"`
	TrainedAt string             `json:"trained_at"`
	Samples   SampleCounts       `json:"samples"`
}

type SampleCounts struct {
	Train int `json:"train"`
	Test  int `json:"test"`
	Total int `json:"total"`
}

func ToPredictionResponse(result *services.ForecastResult) PredictionResponse {
	return PredictionResponse{
		Predictions:  toMonthlyPredictions(result.Predictions),
		ModelVersion: result.ModelVersion,
		Metrics:      result.Metrics,
	}
}

func ToPredictionWithHistoryResponse(result *services.ForecastResult) PredictionWithHistoryResponse {
	history := make([]HistoricalPointDTO, 0, len(result.History))
	for _, row := range result.History {
		history = append(history, HistoricalPointDTO{
			Month:      row.EventMonth.Format(monthLayout),
			SalesCount: row.SalesCount,
		})
	}
	return PredictionWithHistoryResponse{
		Predictions:  toMonthlyPredictions(result.Predictions),
		History:      history,
		Segment:      result.Segment,
		ModelVersion: result.ModelVersion,
		TrainedAt:    result.TrainedAt.Format(time.RFC3339),
		Metrics:      result.Metrics,
	}
}

func ToRetrainResponse(meta domain.ModelMetadata) RetrainResponse {
	return RetrainResponse{
		Version:   meta.Version,
		Metrics:   meta.Metrics,
		TrainedAt: meta.TrainedAt.Format(time.RFC3339),
		Samples: SampleCounts{
			Train: meta.TrainSamples,
			Test:  meta.TestSamples,
			Total: meta.TotalSamples,
		},
	}
}

func toMonthlyPredictions(predictions []domain.MonthlyPrediction) []MonthlyPredictionDTO {
	items := make([]MonthlyPredictionDTO, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, MonthlyPredictionDTO{
			Month:   p.Month.Format(monthLayout),
			Demand:  p.Demand,
			LowerCI: p.LowerCI,
			UpperCI: p.UpperCI,
		})
	}
	return items
}
