package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/middleware"
)

// HandleAlertAck marks an alert as acknowledged on the backend.
func HandleAlertAck(c fiber.Ctx) error {
	return alertAction(c, Remote.AckAlert)
}

// HandleAlertClose closes an alert on the backend.
func HandleAlertClose(c fiber.Ctx) error {
	return alertAction(c, Remote.CloseAlert)
}

func alertAction(c fiber.Ctx, action func(ctx context.Context, token string, id int) error) error {
	user := middleware.GetUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Identifiant d'alerte invalide",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := action(ctx, user.BearerToken, id); err != nil {
		return renderBackendError(c, err)
	}

	// The alerts panel reflects the change without waiting for the next
	// period publish.
	if panel := PanelSet.Get(backend.KindAlerts); panel != nil {
		panel.Refresh(ctx)
	}
	return c.JSON(fiber.Map{"message": "Alerte mise à jour"})
}
