// Package httpapi exposes the backup service over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// AuthToken guards /api with a bearer token. Empty disables the check.
	AuthToken string
}

type Server struct {
	app *fiber.App
	log *logger.Logger
}

func NewServer(service Service, opts Options, log *logger.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "dbsaver",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestLogger(log))

	h := &handlers{service: service, log: log}
	app.Get("/health_checker", h.healthCheck)

	api := app.Group("/api", authorize(opts.AuthToken))

	databases := api.Group("/databases")
	databases.Get("/", h.listDatabases)
	databases.Post("/", h.addDatabase)
	databases.Put("/:id", h.editDatabase)
	databases.Delete("/:id", h.deleteDatabase)
	databases.Post("/:id/check", h.checkConnection)
	databases.Post("/:id/save", h.saveDatabase)
	databases.Get("/:id/saves", h.listSnapshots)

	saves := api.Group("/saves")
	saves.Delete("/:id", h.deleteSnapshot)
	saves.Get("/:id/download", h.downloadSnapshot)

	return &Server{app: app, log: log}
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(address string) error {
	s.log.Infof("HTTP API listening on %s", address)
	return s.app.Listen(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func authorize(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		provided, found := strings.CutPrefix(header, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"success": false,
				"message": "Unauthorized",
			})
		}
		return c.Next()
	}
}

func requestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.WithFields(logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   c.Response().StatusCode(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("request served")

		return err
	}
}
