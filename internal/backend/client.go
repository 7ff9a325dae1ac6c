// Package backend wraps the external accounting service's REST API. Every
// call is a thin typed shim: no retries, no polling, no caching. Failures
// come back as one of three shapes: ValidationError before the wire,
// NetworkError on transport trouble, RemoteError for non-2xx answers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anisbt/jauge/internal/httpx"
	"github.com/anisbt/jauge/internal/period"
)

// PanelKind selects which period read FetchForPeriod performs.
type PanelKind string

const (
	KindAnomalies PanelKind = "anomalies"
	KindAlerts    PanelKind = "alerts"
	KindSummary   PanelKind = "summary"
)

// Client talks to the accounting backend. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL string

	// The ETL pipeline runs synchronously inside /etl/load-month, so that
	// one call gets a much longer deadline than ordinary reads.
	api *http.Client
	etl *http.Client
}

// New returns a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		api:     &http.Client{Timeout: 30 * time.Second},
		etl:     &http.Client{Timeout: 15 * time.Minute},
	}
}

// Login exchanges credentials for a bearer token. The backend speaks OAuth2
// password form encoding.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session Session
	if err := c.do(c.api, req, "login", &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// RequestReset asks the backend to mail a password reset link. The backend
// answers 200 whether or not the address exists.
func (c *Client) RequestReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, "/auth/request-reset", map[string]string{"email": email})
}

// ConfirmReset sets a new password using a reset token.
func (c *Client) ConfirmReset(ctx context.Context, token, newPassword string) error {
	return c.postJSON(ctx, "/auth/confirm-reset", map[string]string{
		"token":        token,
		"new_password": newPassword,
	})
}

// Upload ships the selection as one multipart request. Selection invariants
// are checked locally first so an invalid submission never reaches the wire.
func (c *Client) Upload(ctx context.Context, token string, sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("type_fichier", sel.FileType); err != nil {
		return fmt.Errorf("write multipart field: %w", err)
	}
	if err := writer.WriteField("mois", sel.Period.Month); err != nil {
		return fmt.Errorf("write multipart field: %w", err)
	}
	if err := writer.WriteField("annee", strconv.Itoa(sel.Period.Year)); err != nil {
		return fmt.Errorf("write multipart field: %w", err)
	}
	for _, f := range sel.Files {
		part, err := writer.CreateFormFile("files", f.Filename)
		if err != nil {
			return fmt.Errorf("create multipart file part: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("write multipart file part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-excel", &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	attachBearer(req, token)

	return c.do(c.api, req, "upload", nil)
}

// LoadMonth triggers the ETL+analysis pipeline for the period and waits for
// it to finish. fileType narrows the run to one category when non-empty.
func (c *Client) LoadMonth(ctx context.Context, token string, p period.Period, fileType string) (OperationResult, error) {
	query := url.Values{}
	query.Set("mois", p.Month)
	query.Set("annee", strconv.Itoa(p.Year))
	if fileType != "" {
		query.Set("type_fichier", fileType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/etl/load-month?"+query.Encode(), nil)
	if err != nil {
		return OperationResult{}, fmt.Errorf("build load-month request: %w", err)
	}
	attachBearer(req, token)

	var raw struct {
		Message    string `json:"message"`
		ETLSummary struct {
			RowsLoaded map[string]int `json:"rows_loaded"`
			Errors     []string       `json:"errors"`
		} `json:"etl_summary"`
		Analysis struct {
			InsertedAnomalies int `json:"inserted_anomalies"`
			Critical          int `json:"critical"`
		} `json:"analysis"`
	}
	if err := c.do(c.etl, req, "load-month", &raw); err != nil {
		return OperationResult{}, err
	}

	if len(raw.ETLSummary.Errors) > 0 {
		return OperationResult{}, &RemoteError{
			Status: http.StatusUnprocessableEntity,
			Detail: strings.Join(raw.ETLSummary.Errors, "; "),
		}
	}

	return OperationResult{
		Message:        raw.Message,
		RowsLoaded:     raw.ETLSummary.RowsLoaded,
		AnomaliesFound: raw.Analysis.InsertedAnomalies,
		CriticalCount:  raw.Analysis.Critical,
	}, nil
}

// FetchForPeriod is the generic read panels use. The payload stays opaque
// JSON; shaping is the browser's concern.
func (c *Client) FetchForPeriod(ctx context.Context, token string, kind PanelKind, p period.Period) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("mois", p.Month)
	query.Set("annee", strconv.Itoa(p.Year))

	var path string
	switch kind {
	case KindAnomalies:
		path = "/ai/anomalies"
	case KindAlerts:
		path = "/ai/alerts"
		query.Set("status", "open")
	case KindSummary:
		path = "/ai/summary"
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown panel kind %q", kind)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", kind, err)
	}
	attachBearer(req, token)

	var payload json.RawMessage
	if err := c.do(c.api, req, string(kind), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ListFiles returns the backend's records of uploaded workbooks.
func (c *Client) ListFiles(ctx context.Context, token string, filter FileFilter) ([]RemoteFile, error) {
	query := url.Values{}
	if filter.FileType != "" {
		query.Set("type_fichier", filter.FileType)
	}
	if filter.Period != nil {
		query.Set("mois", filter.Period.Month)
		query.Set("annee", strconv.Itoa(filter.Period.Year))
	}
	if filter.Mine {
		query.Set("mine", "true")
	}

	target := c.baseURL + "/excel-files"
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build list-files request: %w", err)
	}
	attachBearer(req, token)

	var files []RemoteFile
	if err := c.do(c.api, req, "list-files", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile removes an uploaded workbook and its staged rows.
func (c *Client) DeleteFile(ctx context.Context, token string, id int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/delete-excel/%d", c.baseURL, id), nil)
	if err != nil {
		return fmt.Errorf("build delete-file request: %w", err)
	}
	attachBearer(req, token)
	return c.do(c.api, req, "delete-file", nil)
}

// AckAlert marks an alert as read.
func (c *Client) AckAlert(ctx context.Context, token string, id int) error {
	return c.alertAction(ctx, token, id, "ack")
}

// CloseAlert closes an alert.
func (c *Client) CloseAlert(ctx context.Context, token string, id int) error {
	return c.alertAction(ctx, token, id, "close")
}

func (c *Client) alertAction(ctx context.Context, token string, id int, action string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/ai/alerts/%d/%s", c.baseURL, id, action), nil)
	if err != nil {
		return fmt.Errorf("build alert %s request: %w", action, err)
	}
	attachBearer(req, token)
	return c.do(c.api, req, "alert-"+action, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(c.api, req, path, nil)
}

// do runs the request and maps the outcome onto the error taxonomy.
func (c *Client) do(hc *http.Client, req *http.Request, op string, dst any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := httpx.ReadBody(resp)
		return &RemoteError{Status: resp.StatusCode, Detail: httpx.ErrorDetail(body)}
	}

	if dst == nil {
		httpx.DrainClose(resp.Body)
		return nil
	}
	return httpx.DecodeJSON(resp, dst)
}

// attachBearer adds the credential when present. A missing token is not an
// error here; the backend answers 401/403 and that surfaces as RemoteError.
func attachBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
