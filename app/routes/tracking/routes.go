package tracking

import (
	"misbah-schools/app/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTrackingRoutes(app *fiber.App, tracker *services.Tracker) {
	api := app.Group("/api/tracking")

	api.Post("/start", StartTrackingAPI(tracker))
	api.Post("/stop", StopTrackingAPI(tracker))
	api.Post("/heartbeat", HeartbeatAPI(tracker))
	api.Get("/report/:studentId", GetTrackingReportAPI(tracker))
	api.Get("/stats/:studentId", GetTrackingStatsAPI(tracker))

	api.Get("/config", GetThresholdConfigAPI)
	api.Post("/config", UpdateThresholdConfigAPI)
}
