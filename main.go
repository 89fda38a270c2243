package main

import (
	"log"

	"misbah-schools/app/config"
	"misbah-schools/app/database"
	"misbah-schools/app/routes/tracking"
	"misbah-schools/app/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func main() {
	// Initialize database
	config.InitDB()
	defer config.GetDB().Close()

	// Run database migrations
	if err := database.RunMigrations(config.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	tracker := services.NewTracker(
		services.NewDBSessionStore(config.GetDB()),
		services.NewDBConfigStore(config.GetDB()),
	)

	// Start background auto-flush
	services.StartAutoFlush(tracker, services.DefaultFlushInterval)

	app := fiber.New(fiber.Config{
		AppName:      "Misbah Schools Presence Tracking",
		ErrorHandler: errorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"active_sessions": tracker.Registry().Len(),
		})
	})

	tracking.SetupTrackingRoutes(app, tracker)

	log.Printf("Starting server on port %s", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
