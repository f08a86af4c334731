package handlers

import (
	"github.com/NanoLinuxDevops/WinSphere/services"
	"github.com/gofiber/fiber/v2"
)

type PredictionHandler struct {
	Predictions *services.PredictionService
	Refresh     *services.DataRefreshService
}

func NewPredictionHandler(predictions *services.PredictionService, refresh *services.DataRefreshService) *PredictionHandler {
	return &PredictionHandler{Predictions: predictions, Refresh: refresh}
}

// GetPrediction generates a candidate draw from the current dataset
func (h *PredictionHandler) GetPrediction(c *fiber.Ctx) error {
	strategy := services.PredictionStrategy(c.Query("strategy", string(services.StrategyFrequency)))

	result := h.Refresh.Refresh(c.Context(), false)
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "No draw data available for prediction",
		})
	}

	prediction, err := h.Predictions.Predict(result.Data, strategy)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      prediction,
		"synthetic": result.Synthetic,
	})
}
