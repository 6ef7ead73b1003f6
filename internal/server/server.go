package server

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"claudebuddy-be/internal/bootstrap"
	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: serverutils.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Last-Event-ID",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, cfg, container)
	serveClient(app, cfg.App.ClientDistDir)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api")
	auth := serverutils.JwtMiddleware(cfg.App.JwtSecret)

	c.StatsController.RegisterRoutes(api, auth)
	c.InsightsController.RegisterRoutes(api, auth)
	c.ResearchController.RegisterRoutes(api, auth)

	api.Use(func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
}

// serveClient serves the built dashboard. Unknown non-API paths fall back to
// index.html so client-side routes survive a reload.
func serveClient(app *fiber.App, distDir string) {
	index := filepath.Join(distDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		log.Printf("[INFO] Client build not found at %s, serving API only", distDir)
		return
	}

	app.Static("/", distDir, fiber.Static{Compress: true})
	app.Get("/*", func(ctx *fiber.Ctx) error {
		if strings.HasPrefix(ctx.Path(), "/api") {
			return ctx.Next()
		}
		return ctx.SendFile(index)
	})
}
