package backend

import (
	"fmt"

	"github.com/anisbt/jauge/internal/excelcheck"
	"github.com/anisbt/jauge/internal/filetypes"
	"github.com/anisbt/jauge/internal/period"
)

// FilePart is one workbook queued for upload.
type FilePart struct {
	Filename string
	Content  []byte
}

// Selection is a fully composed upload: one category, one period, one or
// more xlsx files. It lives only while the user is composing a submission.
type Selection struct {
	FileType string
	Period   period.Period
	Files    []FilePart
}

// Validate enforces the selection invariants before any network dispatch.
func (s Selection) Validate() error {
	if !filetypes.Valid(s.FileType) {
		return &ValidationError{Reason: fmt.Sprintf("type de fichier inconnu : %q", s.FileType)}
	}
	if err := s.Period.Validate(); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("période invalide : %v", err)}
	}
	if len(s.Files) == 0 {
		return &ValidationError{Reason: "aucun fichier sélectionné"}
	}
	for _, f := range s.Files {
		if err := excelcheck.CheckName(f.Filename); err != nil {
			return &ValidationError{Reason: err.Error()}
		}
		if len(f.Content) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("fichier vide : %s", f.Filename)}
		}
	}
	return nil
}

// OperationResult summarizes one completed ETL+analysis run.
type OperationResult struct {
	Message        string         `json:"message"`
	RowsLoaded     map[string]int `json:"rows_loaded"`
	AnomaliesFound int            `json:"anomalies_found"`
	CriticalCount  int            `json:"critical_count"`
}

// TotalRows sums the per-category row counts.
func (r OperationResult) TotalRows() int {
	total := 0
	for _, n := range r.RowsLoaded {
		total += n
	}
	return total
}

// RemoteFile is a read-only snapshot of an uploaded workbook as the backend
// records it. Never cached across periods.
type RemoteFile struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	FileType   string `json:"type_fichier"`
	Month      string `json:"mois"`
	Year       int    `json:"annee"`
	UploadedBy string `json:"uploaded_by"`
}

// Session is what the backend hands back on a successful login.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// User is the backend's view of the authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// FileFilter narrows ListFiles results. Zero values mean "no filter".
type FileFilter struct {
	FileType string
	Period   *period.Period
	Mine     bool
}
