// Package httpx holds the small JSON plumbing shared by the backend client
// and the CLI: decoding response bodies and digging the human-readable
// detail out of backend error envelopes.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DecodeJSON decodes the response body into dst and drains/closes it.
func DecodeJSON(resp *http.Response, dst any) error {
	defer DrainClose(resp.Body)
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// ReadBody reads the full response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// DrainClose discards any unread body so the connection can be reused.
func DrainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}

// ErrorDetail extracts the backend's {"detail": "..."} message from an error
// body. FastAPI emits either a string or a structured list; both collapse to
// a displayable string. Returns "" when no detail is present.
func ErrorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(envelope.Detail, &asString); err == nil {
		return asString
	}

	var asList []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &asList); err == nil {
		parts := make([]string, 0, len(asList))
		for _, item := range asList {
			if item.Msg != "" {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return ""
}
