package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/middleware"
	"github.com/anisbt/jauge/internal/orchestrator"
	"github.com/anisbt/jauge/internal/period"
)

// The ETL can chew on a month of workbooks for a while; confirmation waits
// for it synchronously.
var confirmTimeout = 15 * time.Minute

// HandleUploadBegin stages a selection of workbooks. Validation is entirely
// local; nothing reaches the backend until the user confirms.
func HandleUploadBegin(c fiber.Ctx) error {
	user := middleware.GetUser(c)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Formulaire multipart invalide",
		})
	}

	annee, err := strconv.Atoi(c.FormValue("annee"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Année invalide",
		})
	}

	sel := backend.Selection{
		FileType: c.FormValue("type_fichier"),
		Period:   period.Period{Month: c.FormValue("mois"), Year: annee},
	}

	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "Fichier illisible: " + header.Filename,
			})
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "Fichier illisible: " + header.Filename,
			})
		}
		sel.Files = append(sel.Files, backend.FilePart{
			Filename: header.Filename,
			Content:  content,
		})
	}

	op, err := Cycle.Begin(user.Username, sel)
	if err != nil {
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			return renderBackendError(c, err)
		}
		// a cycle is already staged or running
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(UploadBeginResponse{
		OperationID: op.ID.String(),
		Summary:     op.Summary,
		State:       string(orchestrator.StateAwaitingConfirmation),
	})
}

// HandleUploadConfirm runs the staged cycle to completion: upload, then the
// synchronous ETL load, then period commit and publication.
func HandleUploadConfirm(c fiber.Ctx) error {
	user := middleware.GetUser(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Identifiant d'opération invalide",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
	defer cancel()

	result, err := Cycle.Confirm(ctx, user.BearerToken, id)
	if err != nil {
		return renderBackendError(c, err)
	}

	return c.JSON(CycleResult{
		Message:    result.Message,
		RowsLoaded: result.RowsLoaded,
		TotalRows:  result.TotalRows(),
		Anomalies:  result.AnomaliesFound,
		Critical:   result.CriticalCount,
	})
}

// HandleUploadCancel drops a staged operation without any backend traffic.
func HandleUploadCancel(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Identifiant d'opération invalide",
		})
	}

	if err := Cycle.Cancel(id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Opération annulée"})
}

// HandleCycleState reports the orchestrator phase for the upload UI.
func HandleCycleState(c fiber.Ctx) error {
	state, failure := Cycle.State()

	resp := CycleState{State: string(state), Failure: failure}
	if pending := Cycle.Pending(); pending != nil {
		resp.Pending = &UploadBeginResponse{
			OperationID: pending.ID.String(),
			Summary:     pending.Summary,
			State:       string(orchestrator.StateAwaitingConfirmation),
		}
	}
	return c.JSON(resp)
}
