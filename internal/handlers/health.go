package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/eidoscope/eidoscope/internal/service"
	"github.com/eidoscope/eidoscope/internal/store"
)

// HealthHandler reports liveness.
func HealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// ChecklistHandler reports the in-memory checklist size and, when a warm
// store is configured, the persisted copy's size and freshness.
func ChecklistHandler(cache *service.ChecklistCache, checklistStore *store.ChecklistStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp := fiber.Map{"cached": cache.Size()}

		if checklistStore != nil {
			count, fetchedAt, err := checklistStore.Count(context.Background())
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to read checklist store",
				})
			}
			resp["stored"] = count
			if !fetchedAt.IsZero() && count > 0 {
				resp["fetched_at"] = fetchedAt
			}
		}

		return c.JSON(resp)
	}
}
