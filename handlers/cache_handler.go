package handlers

import (
	"github.com/NanoLinuxDevops/WinSphere/services"
	"github.com/NanoLinuxDevops/WinSphere/storage"
	"github.com/gofiber/fiber/v2"
)

type CacheHandler struct {
	Cache *services.DrawCacheService
}

func NewCacheHandler(cache *services.DrawCacheService) *CacheHandler {
	return &CacheHandler{Cache: cache}
}

// GetCacheStats returns the cache diagnostic snapshot
func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	stats, err := h.Cache.GetStats()
	if err != nil {
		if err == storage.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Cache is empty",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// ClearCache drops the cached dataset
func (h *CacheHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.Cache.Clear(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache cleared",
	})
}

// OptimizeCache rewrites the cache trimmed to the configured cap
func (h *CacheHandler) OptimizeCache(c *fiber.Ctx) error {
	if err := h.Cache.Optimize(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache optimized",
	})
}

// VerifyCache runs an integrity check without mutating the cache
func (h *CacheHandler) VerifyCache(c *fiber.Ctx) error {
	intact, err := h.Cache.ValidateIntegrity()
	if err != nil {
		if err == storage.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Cache is empty",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"intact":  intact,
	})
}
