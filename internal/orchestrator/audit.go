package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anisbt/jauge/internal/database"
	"github.com/anisbt/jauge/internal/period"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEntry is one row of the upload history: who ran a cycle, on what, and
// how it ended.
type AuditEntry struct {
	ID         int64         `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	Actor      string        `json:"actor"`
	FileType   string        `json:"file_type"`
	Period     period.Period `json:"period"`
	FileCount  int           `json:"file_count"`
	Outcome    string        `json:"outcome"`
	RowsLoaded int           `json:"rows_loaded"`
	Anomalies  int           `json:"anomalies"`
	Critical   int           `json:"critical"`
	Failure    string        `json:"failure,omitempty"`
}

// AuditSink records cycle outcomes.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
}

// DBAudit persists audit rows in Postgres via the shared pool.
type DBAudit struct{}

func (DBAudit) Record(ctx context.Context, e AuditEntry) error {
	var failure sql.NullString
	if e.Failure != "" {
		failure = sql.NullString{String: e.Failure, Valid: true}
	}
	_, err := database.DB.ExecContext(ctx, `
		INSERT INTO upload_audit
			(actor, file_type, mois, annee, file_count, outcome, rows_loaded, anomalies, critical, failure)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.Actor, e.FileType, e.Period.Month, e.Period.Year, e.FileCount,
		e.Outcome, e.RowsLoaded, e.Anomalies, e.Critical, failure)
	if err != nil {
		return fmt.Errorf("insert upload_audit: %w", err)
	}
	return nil
}

// History returns the most recent audit rows, newest first. A non-nil period
// narrows the list to cycles run against that month.
func History(ctx context.Context, p *period.Period, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, created_at, actor, file_type, mois, annee, file_count,
		       outcome, rows_loaded, anomalies, critical, failure
		FROM upload_audit`
	args := []any{}
	if p != nil {
		query += ` WHERE mois = $1 AND annee = $2`
		args = append(args, p.Month, p.Year)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := database.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query upload_audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var failure sql.NullString
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Actor, &e.FileType,
			&e.Period.Month, &e.Period.Year, &e.FileCount,
			&e.Outcome, &e.RowsLoaded, &e.Anomalies, &e.Critical, &failure); err != nil {
			return nil, fmt.Errorf("scan upload_audit row: %w", err)
		}
		e.Failure = failure.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
