// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"learning-progress-system/middleware"
	"learning-progress-system/models"
	"learning-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes wires the progression API. Secured routes rely on
// the Gateway-provided user context; the gateway forwards paths like
// /api/v1/progress/s/user/progress -> /s/user/progress.
func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		view, err := progression.GetProgress(c.Context(), userID)
		if err != nil {
			return errorResponse(c, err, "failed to load progress")
		}

		rec := view.Record
		return c.JSON(fiber.Map{
			"id":                     rec.ID,
			"xp":                     rec.TotalXP,
			"level":                  view.Level.Level,
			"level_progress_percent": view.Level.ProgressPercent,
			"xp_to_next_level":       view.Level.XPToNextLevel,
			"max_level":              view.Level.MaxLevel,
			"coin_balance":           rec.CoinBalance,
			"current_streak":         rec.CurrentStreak,
			"longest_streak":         rec.LongestStreak,
			"last_active_date":       rec.LastActiveDate,
			"completed_units":        rec.CompletedUnits,
			"unlocked_achievements":  rec.UnlockedAchievements,
			"enrolled_courses":       rec.EnrolledCourses,
			"last_level_up_at":       rec.LastLevelUpAt,
		})
	})

	securedGroup.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		achievements, err := progression.GetAchievements(c.Context(), userID)
		if err != nil {
			return errorResponse(c, err, "failed to load achievements")
		}
		return c.JSON(fiber.Map{"achievements": achievements})
	})

	securedGroup.Get("/user/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		entries, total, err := progression.GetTransactions(c.Context(), userID, page, size)
		if err != nil {
			return errorResponse(c, err, "failed to load transactions")
		}
		return c.JSON(fiber.Map{
			"transactions": entries,
			"page":         page,
			"size":         size,
			"total_items":  total,
		})
	})

	securedGroup.Post("/courses/:courseId/units/:unitId/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			EventID string `json:"event_id"`
		}
		// Body is optional; an empty event id falls back to a derived key.
		_ = c.BodyParser(&req)

		delta, err := progression.CompleteUnit(c.Context(), userID, c.Params("courseId"), c.Params("unitId"), req.EventID)
		if err != nil {
			return errorResponse(c, err, "failed to complete unit")
		}
		return c.JSON(delta)
	})

	securedGroup.Post("/quizzes/:quizId/submit", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Answers []int  `json:"answers"`
			EventID string `json:"event_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result, err := progression.SubmitQuiz(c.Context(), userID, c.Params("quizId"), req.Answers, req.EventID)
		if err != nil {
			return errorResponse(c, err, "failed to submit quiz")
		}
		return c.JSON(result)
	})

	securedGroup.Post("/user/login/daily", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		delta, err := progression.RecordDailyLogin(c.Context(), userID)
		if err != nil {
			return errorResponse(c, err, "failed to record daily login")
		}
		return c.JSON(delta)
	})

	securedGroup.Post("/user/coins/spend", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Amount int64  `json:"amount"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "amount must be positive",
			})
		}

		entry, err := progression.SpendCoins(c.Context(), userID, req.Amount, req.Reason)
		if err != nil {
			return errorResponse(c, err, "failed to spend coins")
		}
		return c.JSON(entry)
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		period := models.LeaderboardPeriod(c.Query("period", string(models.LeaderboardPeriodAllTime)))
		dimension := models.LeaderboardDimension(c.Query("dimension", string(models.LeaderboardDimensionXP)))
		limit, _ := strconv.Atoi(c.Query("limit", "50"))

		if !period.IsValid() || !dimension.IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown period or dimension",
			})
		}

		entries, err := progression.GetLeaderboard(c.Context(), period, dimension, limit)
		if err != nil {
			return errorResponse(c, err, "failed to build leaderboard")
		}
		return c.JSON(fiber.Map{
			"period":    period,
			"dimension": dimension,
			"entries":   entries,
		})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.XP <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and a positive xp amount are required",
			})
		}

		delta, err := progression.GrantXP(c.Context(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return errorResponse(c, err, "XP grant failed")
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"delta":   delta,
		})
	})

	adminGroup.Post("/coins/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			Amount int64  `json:"amount" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and a positive amount are required",
			})
		}

		entry, err := progression.GrantCoins(c.Context(), req.UserID, req.Amount, req.Reason)
		if err != nil {
			return errorResponse(c, err, "coin grant failed")
		}
		return c.JSON(fiber.Map{
			"message":     "coins granted successfully",
			"transaction": entry,
		})
	})
}

// errorResponse maps core errors onto HTTP statuses.
func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, models.ErrUnitLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientBalance):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrUnknownCourse),
		errors.Is(err, models.ErrUnknownUnit),
		errors.Is(err, models.ErrUnknownQuiz):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrAnswerCountMismatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		// Retries exhausted; the client may safely resubmit.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
			"cause": err.Error(),
		})
	}
}
