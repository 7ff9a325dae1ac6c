package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/filetypes"
	"github.com/anisbt/jauge/internal/orchestrator"
	"github.com/anisbt/jauge/internal/period"
)

// HandlePanel serves the last snapshot for one of the three analysis panels.
// Panels only run when a service token is configured.
func HandlePanel(c fiber.Ctx) error {
	if PanelSet == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"detail": "Panneaux indisponibles : aucun jeton de service configuré",
		})
	}
	panel := PanelSet.Get(backend.PanelKind(c.Params("kind")))
	if panel == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"detail": "Panneau inconnu",
		})
	}
	return c.JSON(panel.Snapshot())
}

// HandleGetPeriod returns the active accounting period.
func HandleGetPeriod(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return c.JSON(Periods.Get(ctx))
}

// HandleFileTypes lists the workbook categories the dashboard accepts.
func HandleFileTypes(c fiber.Ctx) error {
	return c.JSON(filetypes.All())
}

// HandleHistory lists past upload cycles, optionally narrowed to a period.
func HandleHistory(c fiber.Ctx) error {
	var filter *period.Period
	if mois := c.Query("mois"); mois != "" {
		annee, err := strconv.Atoi(c.Query("annee"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "Année invalide",
			})
		}
		p := period.Period{Month: mois, Year: annee}
		if err := p.Validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": err.Error(),
			})
		}
		filter = &p
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := orchestrator.History(ctx, filter, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Historique indisponible",
		})
	}
	if entries == nil {
		entries = []orchestrator.AuditEntry{}
	}
	return c.JSON(entries)
}
