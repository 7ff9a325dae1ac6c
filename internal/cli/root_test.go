package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisbt/jauge/internal/database"
)

func rootTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/", handleIndex)
	app.Get("/health", handleHealth)
	app.Get("/up", handleUp)
	app.Get("/api/version", handleVersion)
	return app
}

func TestHandleHealthPayload(t *testing.T) {
	app := rootTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, "jauge", payload["service"])
}

func TestHandleUpReturnsOKWhenDatabaseHealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	original := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = original
		db.Close()
	})

	resp, err := rootTestApp().Test(httptest.NewRequest(http.MethodGet, "/up", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleUpReturnsServiceUnavailableWhenPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(assert.AnError)

	original := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = original
		db.Close()
	})

	resp, err := rootTestApp().Test(httptest.NewRequest(http.MethodGet, "/up", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleVersionReturnsCurrentVersion(t *testing.T) {
	original := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = original })

	resp, err := rootTestApp().Test(httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "1.2.3", payload["version"])
}

func TestHandleIndexServesEmbeddedHTML(t *testing.T) {
	original := IndexHTML
	IndexHTML = []byte("<html><body>Jauge</body></html>")
	t.Cleanup(func() { IndexHTML = original })

	resp, err := rootTestApp().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Jauge")
}

func TestCorsOriginsExpandsSchemes(t *testing.T) {
	origins := corsOrigins([]string{"localhost", "jauge.example.com"})
	assert.Equal(t, []string{
		"http://localhost", "https://localhost",
		"http://jauge.example.com", "https://jauge.example.com",
	}, origins)
}
