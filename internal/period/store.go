package period

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/anisbt/jauge/internal/database"
	"github.com/anisbt/jauge/internal/logging"
)

// Storage keys. Month and year are persisted as two independent rows so a
// partial read (month without year, or the reverse) still yields something
// meaningful for diagnostics.
const (
	keyActiveMonth = "active_month"
	keyActiveYear  = "active_year"
)

var nowFunc = time.Now

// Store persists the active period in the app_state table. The orchestrator
// is the only writer; panels and handlers read at mount time. Setting the
// store has no subscriber side effects. Publishing is the orchestrator's
// explicit, separate step.
type Store struct{}

// NewStore returns the durable period store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the last persisted active period, falling back to the current
// calendar month when no period was ever stored or a row is unreadable.
func (s *Store) Get(ctx context.Context) Period {
	fallback := At(nowFunc())

	month, err := s.read(ctx, keyActiveMonth)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.L().Warn("failed to read active month", "error", err)
		}
		return fallback
	}

	yearRaw, err := s.read(ctx, keyActiveYear)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.L().Warn("failed to read active year", "error", err)
		}
		return fallback
	}

	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		logging.L().Warn("active year is not numeric", "value", yearRaw)
		return fallback
	}

	p := Period{Month: month, Year: year}
	if p.Validate() != nil {
		return fallback
	}
	return p
}

// Set persists p as the active period. Callers validate before writing; the
// store only guards against the obviously unusable.
func (s *Store) Set(ctx context.Context, p Period) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid period: %w", err)
	}

	if err := s.write(ctx, keyActiveMonth, p.Month); err != nil {
		return fmt.Errorf("persist active month: %w", err)
	}
	if err := s.write(ctx, keyActiveYear, strconv.Itoa(p.Year)); err != nil {
		return fmt.Errorf("persist active year: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	var value string
	err := database.DB.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = $1`, key).Scan(&value)
	return value, err
}

func (s *Store) write(ctx context.Context, key, value string) error {
	_, err := database.DB.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	return err
}
