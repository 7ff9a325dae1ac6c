package httpx

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseWithBody(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Message string `json:"message"`
	}
	require.NoError(t, DecodeJSON(responseWithBody(`{"message":"ok"}`), &dst))
	assert.Equal(t, "ok", dst.Message)
}

func TestDecodeJSONInvalidBody(t *testing.T) {
	var dst map[string]any
	require.Error(t, DecodeJSON(responseWithBody(`{broken`), &dst))
}

func TestDecodeJSONNilDestinationDrains(t *testing.T) {
	require.NoError(t, DecodeJSON(responseWithBody(`{"ignored":true}`), nil))
}

func TestErrorDetailString(t *testing.T) {
	assert.Equal(t, "Mois invalide", ErrorDetail([]byte(`{"detail":"Mois invalide"}`)))
}

func TestErrorDetailValidationList(t *testing.T) {
	body := `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`
	assert.Equal(t, "field required; value is not a valid integer", ErrorDetail([]byte(body)))
}

func TestErrorDetailAbsent(t *testing.T) {
	assert.Equal(t, "", ErrorDetail(nil))
	assert.Equal(t, "", ErrorDetail([]byte(`{}`)))
	assert.Equal(t, "", ErrorDetail([]byte(`not json`)))
}
