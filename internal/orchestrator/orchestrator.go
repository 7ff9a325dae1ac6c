// Package orchestrator drives the monthly upload-and-analyze cycle: stage a
// selection of workbooks, confirm it, push it through the backend ETL, then
// commit the active period and notify every listener exactly once.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/excelcheck"
	"github.com/anisbt/jauge/internal/logging"
	"github.com/anisbt/jauge/internal/period"
)

// State names the phase the orchestrator is in. Only one cycle runs at a
// time; concurrent Begin calls while a cycle is staged or running are
// rejected.
type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateUploading            State = "uploading"
	StateAnalyzing            State = "analyzing"
	StatePublishing           State = "publishing"
	StateFailed               State = "failed"
)

// RemoteClient is the slice of the backend client the cycle needs.
type RemoteClient interface {
	Upload(ctx context.Context, token string, sel backend.Selection) error
	LoadMonth(ctx context.Context, token string, p period.Period, fileType string) (backend.OperationResult, error)
}

// PeriodStore commits the active period after a successful cycle.
type PeriodStore interface {
	Set(ctx context.Context, p period.Period) error
}

// Publisher fans the committed period out to subscribers.
type Publisher interface {
	Publish(p period.Period)
}

// Operation is a staged cycle waiting for confirmation.
type Operation struct {
	ID        uuid.UUID
	Selection backend.Selection
	Actor     string
	Summary   string
	CreatedAt time.Time
}

// Orchestrator owns the cycle state machine. Zero value is not usable; use New.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	pending *Operation
	failure string

	client RemoteClient
	store  PeriodStore
	bus    Publisher
	audit  AuditSink
}

func New(client RemoteClient, store PeriodStore, bus Publisher, audit AuditSink) *Orchestrator {
	return &Orchestrator{
		state:  StateIdle,
		client: client,
		store:  store,
		bus:    bus,
		audit:  audit,
	}
}

// State reports the current phase and, when failed, the retained reason.
func (o *Orchestrator) State() (State, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.failure
}

// Pending returns the staged operation, or nil when nothing awaits
// confirmation.
func (o *Orchestrator) Pending() *Operation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return nil
	}
	op := *o.pending
	return &op
}

// Begin validates a selection and stages it for confirmation. No network
// traffic happens here: field checks and local workbook inspection only.
// A selection that fails validation leaves the orchestrator idle.
func (o *Orchestrator) Begin(actor string, sel backend.Selection) (*Operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle, StateFailed:
	case StateAwaitingConfirmation:
		return nil, fmt.Errorf("une opération est déjà en attente de confirmation")
	default:
		return nil, fmt.Errorf("un cycle est déjà en cours (%s)", o.state)
	}

	o.state = StateValidating
	if err := sel.Validate(); err != nil {
		o.state = StateIdle
		return nil, err
	}
	for _, f := range sel.Files {
		if err := excelcheck.Check(f.Filename, bytes.NewReader(f.Content)); err != nil {
			o.state = StateIdle
			return nil, &backend.ValidationError{Reason: err.Error()}
		}
	}

	op := &Operation{
		ID:        uuid.New(),
		Selection: sel,
		Actor:     actor,
		Summary: fmt.Sprintf("%d fichier(s) %s pour %s", len(sel.Files),
			sel.FileType, sel.Period.String()),
		CreatedAt: time.Now(),
	}
	o.pending = op
	o.failure = ""
	o.state = StateAwaitingConfirmation

	staged := *op
	return &staged, nil
}

// Cancel drops a staged operation without touching the backend. Cancelling
// an unknown or already-consumed id is an error; the caller raced a Confirm.
func (o *Orchestrator) Cancel(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil || o.pending.ID != id {
		return fmt.Errorf("aucune opération en attente avec cet identifiant")
	}
	o.pending = nil
	o.state = StateIdle
	return nil
}

// Confirm runs the staged cycle: upload first, then the synchronous ETL load,
// then commit the period and publish. The period store is only touched after
// both remote steps succeed, and subscribers are notified at most once.
func (o *Orchestrator) Confirm(ctx context.Context, token string, id uuid.UUID) (backend.OperationResult, error) {
	o.mu.Lock()
	if o.pending == nil || o.pending.ID != id {
		o.mu.Unlock()
		return backend.OperationResult{}, fmt.Errorf("aucune opération en attente avec cet identifiant")
	}
	op := *o.pending
	o.pending = nil
	o.state = StateUploading
	o.mu.Unlock()

	if err := o.client.Upload(ctx, token, op.Selection); err != nil {
		o.fail(ctx, op, fmt.Sprintf("téléversement: %v", err))
		return backend.OperationResult{}, err
	}

	o.setState(StateAnalyzing)
	result, err := o.client.LoadMonth(ctx, token, op.Selection.Period, op.Selection.FileType)
	if err != nil {
		o.fail(ctx, op, fmt.Sprintf("analyse: %v", err))
		return backend.OperationResult{}, err
	}

	o.setState(StatePublishing)
	if err := o.store.Set(ctx, op.Selection.Period); err != nil {
		o.fail(ctx, op, fmt.Sprintf("enregistrement de la période: %v", err))
		return backend.OperationResult{}, err
	}
	o.bus.Publish(op.Selection.Period)

	o.recordAudit(ctx, op, AuditEntry{
		Outcome:    OutcomeSuccess,
		RowsLoaded: result.TotalRows(),
		Anomalies:  result.AnomaliesFound,
		Critical:   result.CriticalCount,
	})

	o.mu.Lock()
	o.state = StateIdle
	o.failure = ""
	o.mu.Unlock()

	logging.L().Info("cycle terminé",
		"actor", op.Actor,
		"file_type", op.Selection.FileType,
		"period", op.Selection.Period.String(),
		"rows", result.TotalRows(),
		"anomalies", result.AnomaliesFound,
		"critical", result.CriticalCount)

	return result, nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) fail(ctx context.Context, op Operation, reason string) {
	o.recordAudit(ctx, op, AuditEntry{Outcome: OutcomeFailure, Failure: reason})

	o.mu.Lock()
	o.state = StateFailed
	o.failure = reason
	o.mu.Unlock()

	logging.L().Warn("cycle échoué",
		"actor", op.Actor,
		"file_type", op.Selection.FileType,
		"period", op.Selection.Period.String(),
		"reason", reason)
}

// recordAudit fills the shared columns and hands the row to the sink. A sink
// error never changes the outcome of the cycle.
func (o *Orchestrator) recordAudit(ctx context.Context, op Operation, e AuditEntry) {
	if o.audit == nil {
		return
	}
	e.Actor = op.Actor
	e.FileType = op.Selection.FileType
	e.Period = op.Selection.Period
	e.FileCount = len(op.Selection.Files)
	if err := o.audit.Record(ctx, e); err != nil {
		logging.L().Warn("audit non enregistré", "error", err)
	}
}
