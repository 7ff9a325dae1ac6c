package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/middleware"
	"github.com/anisbt/jauge/internal/period"
)

// HandleListFiles proxies the backend's uploaded-workbook listing, applying
// any query filters as-is.
func HandleListFiles(c fiber.Ctx) error {
	user := middleware.GetUser(c)

	filter := backend.FileFilter{
		FileType: c.Query("type_fichier"),
		Mine:     c.Query("mine") == "true",
	}
	if mois := c.Query("mois"); mois != "" {
		annee, err := strconv.Atoi(c.Query("annee"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "Année invalide",
			})
		}
		filter.Period = &period.Period{Month: mois, Year: annee}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files, err := Remote.ListFiles(ctx, user.BearerToken, filter)
	if err != nil {
		return renderBackendError(c, err)
	}
	if files == nil {
		files = []backend.RemoteFile{}
	}
	return c.JSON(files)
}

// HandleDeleteFile removes an uploaded workbook and its staged rows.
func HandleDeleteFile(c fiber.Ctx) error {
	user := middleware.GetUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Identifiant de fichier invalide",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Remote.DeleteFile(ctx, user.BearerToken, id); err != nil {
		return renderBackendError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Fichier supprimé"})
}
