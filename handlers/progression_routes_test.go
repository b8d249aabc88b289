package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learning-progress-system/models"
	"learning-progress-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time   { return f.at }
func (f fixedClock) Today() time.Time { return services.Day(f.at) }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	catalog := services.NewMemoryContentCatalog()
	catalog.AddCourse(&models.Course{
		ID:    "go-basics",
		Title: "Go Basics",
		Units: []models.Unit{
			{ID: "u1", CourseID: "go-basics", Title: "Hello", OrderIndex: 0, XPReward: 60, CoinReward: 10},
			{ID: "u2", CourseID: "go-basics", Title: "Structs", OrderIndex: 1, XPReward: 60, CoinReward: 10},
		},
	})

	clock := fixedClock{at: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := services.NewProgressionService(services.NewMemoryRecordStore(), catalog, clock)

	app := fiber.New()
	SetupProgressionRoutes(app, svc)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID, roles string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func TestRoutes_RequireUserContext(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, "GET", "/s/user/progress", "", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCompleteUnitRoute(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/s/courses/go-basics/units/u1/complete", "user-1", "",
		map[string]any{"event_id": "evt-1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(60), body["xp_gained"])
	assert.Equal(t, float64(10), body["coins_gained"])

	// Locked unit ahead of the frontier.
	app2 := newTestApp(t)
	resp, body = doJSON(t, app2, "POST", "/s/courses/go-basics/units/u2/complete", "user-1", "", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "locked")

	// Unknown course.
	resp, _ = doJSON(t, app, "POST", "/s/courses/nope/units/u1/complete", "user-1", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProgressRoute(t *testing.T) {
	app := newTestApp(t)

	_, _ = doJSON(t, app, "POST", "/s/courses/go-basics/units/u1/complete", "user-1", "", nil)

	resp, body := doJSON(t, app, "GET", "/s/user/progress", "user-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(60), body["xp"])
	assert.Equal(t, float64(0), body["level"])
	assert.Equal(t, float64(10), body["coin_balance"])
}

func TestSpendRoute(t *testing.T) {
	app := newTestApp(t)

	// Earn first, then overspend.
	_, _ = doJSON(t, app, "POST", "/s/courses/go-basics/units/u1/complete", "user-1", "", nil)

	resp, _ := doJSON(t, app, "POST", "/s/user/coins/spend", "user-1", "",
		map[string]any{"amount": 5, "reason": "sticker"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/s/user/coins/spend", "user-1", "",
		map[string]any{"amount": 9999, "reason": "yacht"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/s/user/coins/spend", "user-1", "",
		map[string]any{"amount": -1, "reason": "nice try"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboardRoute(t *testing.T) {
	app := newTestApp(t)

	_, _ = doJSON(t, app, "POST", "/s/courses/go-basics/units/u1/complete", "user-1", "", nil)

	resp, body := doJSON(t, app, "GET", "/s/leaderboard?period=all_time&dimension=xp&limit=10", "user-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)

	resp, _ = doJSON(t, app, "GET", "/s/leaderboard?period=yearly", "user-1", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutes_RoleGuard(t *testing.T) {
	app := newTestApp(t)
	grant := map[string]any{"user_id": "user-2", "xp": 100, "reason": "migration"}

	resp, _ := doJSON(t, app, "POST", "/s/admin/xp/grant", "user-1", "student", grant)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/s/admin/xp/grant", "user-1", "admin", grant)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	delta := body["delta"].(map[string]any)
	assert.Equal(t, float64(100), delta["xp_gained"])

	resp, _ = doJSON(t, app, "POST", "/s/admin/coins/grant", "user-1", "admin,staff",
		map[string]any{"user_id": "user-2", "amount": 50, "reason": "promo"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDailyLoginRoute(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/s/user/login/daily", "user-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["current_streak"])
	assert.Equal(t, true, body["extended"])

	// Same day replay.
	resp, body = doJSON(t, app, "POST", "/s/user/login/daily", "user-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["extended"])
}
