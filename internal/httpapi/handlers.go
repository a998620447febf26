package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kadirbelkuyu/dbsaver/internal/archive"
	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Service is the application surface served over HTTP.
type Service interface {
	ListDatabases(ctx context.Context) ([]models.Database, error)
	AddDatabase(ctx context.Context, input models.DatabaseInput) (*models.Database, error)
	EditDatabase(ctx context.Context, id string, input models.DatabaseInput) (*models.Database, error)
	DeleteDatabase(ctx context.Context, id string) error
	CheckConnection(ctx context.Context, id string) (*models.Database, error)
	ManualBackup(ctx context.Context, id string) (*models.Snapshot, error)
	BackupInBackground(ctx context.Context, id string) error
	ListSnapshots(ctx context.Context, databaseID string) ([]models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	DownloadSnapshot(ctx context.Context, id string) (*archive.Archive, error)
}

type handlers struct {
	service Service
	log     *logger.Logger
}

func (h *handlers) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "dbsaver is running",
	})
}

func (h *handlers) listDatabases(c *fiber.Ctx) error {
	databases, err := h.service.ListDatabases(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"success":   true,
		"databases": databases,
	})
}

func (h *handlers) addDatabase(c *fiber.Ctx) error {
	input := new(models.DatabaseInput)
	if err := c.BodyParser(input); err != nil {
		return h.badRequest(c, "Cannot parse JSON payload")
	}

	db, err := h.service.AddDatabase(c.UserContext(), *input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":   "success",
		"success":  true,
		"message":  "Database added",
		"database": db,
	})
}

func (h *handlers) editDatabase(c *fiber.Ctx) error {
	input := new(models.DatabaseInput)
	if err := c.BodyParser(input); err != nil {
		return h.badRequest(c, "Cannot parse JSON payload")
	}

	db, err := h.service.EditDatabase(c.UserContext(), c.Params("id"), *input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"success":  true,
		"message":  "Database updated",
		"database": db,
	})
}

func (h *handlers) deleteDatabase(c *fiber.Ctx) error {
	if err := h.service.DeleteDatabase(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, "Database deleted")
}

func (h *handlers) checkConnection(c *fiber.Ctx) error {
	db, err := h.service.CheckConnection(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"success":  true,
		"message":  "Connected",
		"database": db,
	})
}

func (h *handlers) saveDatabase(c *fiber.Ctx) error {
	id := c.Params("id")

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if err := h.service.BackupInBackground(c.UserContext(), id); err != nil {
			return h.fail(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "success",
			"success": true,
			"message": "Backup started",
		})
	}

	snapshot, err := h.service.ManualBackup(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"success": true,
		"message": "Database saved",
		"save":    snapshot,
	})
}

func (h *handlers) listSnapshots(c *fiber.Ctx) error {
	snapshots, err := h.service.ListSnapshots(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"success": true,
		"saves":   snapshots,
	})
}

func (h *handlers) deleteSnapshot(c *fiber.Ctx) error {
	if err := h.service.DeleteSnapshot(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, "Save deleted")
}

func (h *handlers) downloadSnapshot(c *fiber.Ctx) error {
	zipped, err := h.service.DownloadSnapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="save.zip"`)
	// the response closes the archive once it has been streamed
	return c.SendStream(zipped, int(zipped.Size))
}

func (h *handlers) ok(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"success": true,
		"message": message,
	})
}

func (h *handlers) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"success": false,
		"message": message,
	})
}

// fail maps service errors onto responses. Remote connection and dump
// failures are expected outcomes and keep a 200 status.
func (h *handlers) fail(c *fiber.Ctx, err error) error {
	var connErr *models.ConnectionError
	var backupErr *models.BackupError

	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"success": false,
			"message": "Not found",
		})
	case errors.Is(err, models.ErrInvalidInput):
		return h.badRequest(c, err.Error())
	case errors.As(err, &connErr), errors.As(err, &backupErr):
		return c.JSON(fiber.Map{
			"status":  "error",
			"success": false,
			"message": err.Error(),
		})
	default:
		h.log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"success": false,
			"message": fmt.Sprintf("Internal error: %s", err.Error()),
		})
	}
}
