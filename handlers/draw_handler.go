package handlers

import (
	"github.com/NanoLinuxDevops/WinSphere/services"
	"github.com/gofiber/fiber/v2"
)

type DrawHandler struct {
	Service *services.DataRefreshService
}

func NewDrawHandler(service *services.DataRefreshService) *DrawHandler {
	return &DrawHandler{Service: service}
}

// GetDraws returns the current dataset, refreshing it when stale
func (h *DrawHandler) GetDraws(c *fiber.Ctx) error {
	result := h.Service.Refresh(c.Context(), false)
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":       false,
			"error":         result.Error,
			"error_details": result.ErrorDetails,
		})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"data":          result.Data,
		"from_cache":    result.FromCache,
		"fallback_used": result.FallbackUsed,
		"synthetic":     result.Synthetic,
		"data_age":      result.DataAgeHours,
		"record_count":  result.RecordCount,
	})
}

// RefreshDraws forces a fresh download, bypassing fresh cached data
func (h *DrawHandler) RefreshDraws(c *fiber.Ctx) error {
	force := c.Query("force", "true") == "true"
	result := h.Service.Refresh(c.Context(), force)

	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"success": result.Success,
		"result":  result,
	})
}

// GetRefreshStatus reports the pipeline state and metrics
func (h *DrawHandler) GetRefreshStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"state":   h.Service.State(),
		"metrics": h.Service.Metrics(),
	})
}

// GetQualityReport returns the report from the latest validation
func (h *DrawHandler) GetQualityReport(c *fiber.Ctx) error {
	report := h.Service.LastQualityReport()
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "No data has been validated yet",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}
