package handlers

import (
	"context"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/orchestrator"
	"github.com/anisbt/jauge/internal/panels"
	"github.com/anisbt/jauge/internal/period"
)

// RemoteBackend is the slice of the backend client the HTTP layer proxies.
type RemoteBackend interface {
	Login(ctx context.Context, username, password string) (backend.Session, error)
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, token, newPassword string) error
	ListFiles(ctx context.Context, token string, filter backend.FileFilter) ([]backend.RemoteFile, error)
	DeleteFile(ctx context.Context, token string, id int) error
	AckAlert(ctx context.Context, token string, id int) error
	CloseAlert(ctx context.Context, token string, id int) error
}

// PeriodReader resolves the active period for read endpoints.
type PeriodReader interface {
	Get(ctx context.Context) period.Period
}

// Wired at startup; tests swap in fakes.
var (
	Remote   RemoteBackend
	Cycle    *orchestrator.Orchestrator
	PanelSet *panels.Set
	Periods  PeriodReader
)
