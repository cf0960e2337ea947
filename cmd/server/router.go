package main

import (
	"context"

	"taskpulse/cmd/server/handlers"
	"taskpulse/cmd/server/handlers/httperr"
	notesHandlers "taskpulse/cmd/server/handlers/notes"
	"taskpulse/cmd/server/middlewares"
	"taskpulse/internal/clients/mongo"
	"taskpulse/internal/config"
	"taskpulse/internal/logger"
	notesServices "taskpulse/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {
	v := validator.New()

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type",
	}))

	hub := notesServices.NewHub(cfg.WSOutboxBuffer)

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app, hub)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	app.Get("/healthz", handlers.Healthz)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	notesRepo, err := mongo.NewNotesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(notesServices.ErrCreateNotesRepo.Error(), "error", err)
		panic(err)
	}
	notesSvc := notesServices.NewService(notesRepo, hub, logger.L(), cfg.RecentNotesLimit)
	notesH := notesHandlers.NewHandlers(notesSvc, v)

	notesGrp := v1.Group("/notes")
	notesGrp.Get("/", notesH.List)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/stats", notesH.Stats)
	notesGrp.Get("/:id", notesH.Get)
	notesGrp.Patch("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)
	notesGrp.Patch("/:id/toggle", notesH.Toggle)
	notesGrp.Patch("/:id/mark-done", notesH.MarkDone)
	notesGrp.Patch("/:id/mark-undone", notesH.MarkUndone)

	// WebSocket routes
	wsHandlers := notesHandlers.NewWebSocketHandlers(hub, cfg.WSMaxSessionSec)
	app.Get("/ws/notes", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	return app
}
