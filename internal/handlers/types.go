package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/anisbt/jauge/internal/backend"
)

// LoginRequest is the dashboard login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse mirrors what the backend knows about the account, minus the
// bearer token, which never leaves the server.
type LoginResponse struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// UploadBeginResponse describes a staged cycle awaiting confirmation.
type UploadBeginResponse struct {
	OperationID string `json:"operation_id"`
	Summary     string `json:"summary"`
	State       string `json:"state"`
}

// CycleResult is returned once a confirmed cycle completes.
type CycleResult struct {
	Message    string         `json:"message"`
	RowsLoaded map[string]int `json:"rows_loaded"`
	TotalRows  int            `json:"total_rows"`
	Anomalies  int            `json:"anomalies"`
	Critical   int            `json:"critical"`
}

// CycleState reports where the orchestrator is, plus the staged operation
// when one is waiting.
type CycleState struct {
	State   string               `json:"state"`
	Failure string               `json:"failure,omitempty"`
	Pending *UploadBeginResponse `json:"pending,omitempty"`
}

// renderBackendError translates client-side errors into the dashboard's
// error envelope. Remote statuses pass through untouched so the browser sees
// what the backend said.
func renderBackendError(c fiber.Ctx, err error) error {
	var verr *backend.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": verr.Reason,
		})
	}

	var remote *backend.RemoteError
	if errors.As(err, &remote) {
		return c.Status(remote.Status).JSON(fiber.Map{
			"detail": remote.Detail,
		})
	}

	var netErr *backend.NetworkError
	if errors.As(err, &netErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"detail": "Service comptable injoignable",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"detail": err.Error(),
	})
}
