package database

import (
	"time"

	"github.com/anisbt/jauge/internal/logging"
)

var (
	nowFunc       = time.Now
	sweepInterval = 15 * time.Minute
)

// SessionSweeper removes expired dashboard sessions in the background.
type SessionSweeper struct {
	stopChan chan struct{}
}

// NewSessionSweeper creates a new sweeper.
func NewSessionSweeper() *SessionSweeper {
	return &SessionSweeper{
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (ss *SessionSweeper) Start() {
	logging.L().Info("starting session sweeper", "interval", sweepInterval.String())
	go ss.loop()
}

// Stop gracefully stops the sweeper.
func (ss *SessionSweeper) Stop() {
	close(ss.stopChan)
}

func (ss *SessionSweeper) loop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	// Run immediately on start
	ss.sweep()

	for {
		select {
		case <-ticker.C:
			ss.sweep()
		case <-ss.stopChan:
			return
		}
	}
}

func (ss *SessionSweeper) sweep() {
	result, err := DB.Exec(`DELETE FROM dashboard_session WHERE expires_at < $1`, nowFunc())
	if err != nil {
		logging.L().Warn("failed to sweep expired sessions", "error", err)
		return
	}

	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		logging.L().Info("swept expired sessions", "deleted", deleted)
	}
}
