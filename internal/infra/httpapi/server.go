package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber application with all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "clips-ai",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", h.Health)
	app.Post("/process", h.SubmitJob)
	app.Get("/status/:id", h.JobStatus)
	app.Get("/results/:id", h.JobResults)
	app.Get("/history", h.History)
	app.Get("/clips/:id", h.ClipDetail)
	app.Get("/clips/:id/download", h.DownloadClip)

	return app
}
