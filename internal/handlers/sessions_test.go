package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/middleware"
)

func stubSessionWrites(t *testing.T) *[]uuid.UUID {
	t.Helper()
	var inserted []uuid.UUID

	originalInsert := insertSessionFunc
	insertSessionFunc = func(sessionID uuid.UUID, tokenHash, bearerToken, username, role string, expiresAt time.Time) error {
		inserted = append(inserted, sessionID)
		assert.NotEmpty(t, tokenHash)
		assert.Equal(t, "jwt-token", bearerToken)
		return nil
	}
	t.Cleanup(func() { insertSessionFunc = originalInsert })
	return &inserted
}

func postJSONRequest(path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleLoginSuccess(t *testing.T) {
	t.Setenv("SECURE_COOKIES", "false")

	stubRemote(t, &fakeRemote{
		loginFunc: func(_ context.Context, username, password string) (backend.Session, error) {
			assert.Equal(t, "aicha", username)
			assert.Equal(t, "secret", password)
			return backend.Session{
				AccessToken: "jwt-token",
				TokenType:   "bearer",
				User:        backend.User{Username: "aicha", Email: "aicha@station.tn", Role: "Comptable"},
			}, nil
		},
	})
	inserted := stubSessionWrites(t)

	app := testApp(nil)
	app.Post("/api/auth/login", HandleLogin)

	resp, err := app.Test(postJSONRequest("/api/auth/login", LoginRequest{Username: "aicha", Password: "secret"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "aicha", body.Username)
	assert.Equal(t, "Comptable", body.Role)

	require.Len(t, *inserted, 1)

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	var sessionCookie *http.Cookie
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookie {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
	assert.False(t, sessionCookie.Secure)
}

func TestHandleLoginBadCredentialsPassesDetailThrough(t *testing.T) {
	stubRemote(t, &fakeRemote{
		loginFunc: func(context.Context, string, string) (backend.Session, error) {
			return backend.Session{}, &backend.RemoteError{Status: http.StatusUnauthorized, Detail: "Mot de passe incorrect"}
		},
	})

	app := testApp(nil)
	app.Post("/api/auth/login", HandleLogin)

	resp, err := app.Test(postJSONRequest("/api/auth/login", LoginRequest{Username: "aicha", Password: "bad"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Mot de passe incorrect", body["detail"])
}

func TestHandleLoginBackendDownReturnsBadGateway(t *testing.T) {
	stubRemote(t, &fakeRemote{
		loginFunc: func(context.Context, string, string) (backend.Session, error) {
			return backend.Session{}, &backend.NetworkError{Op: "login"}
		},
	})

	app := testApp(nil)
	app.Post("/api/auth/login", HandleLogin)

	resp, err := app.Test(postJSONRequest("/api/auth/login", LoginRequest{Username: "aicha", Password: "secret"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHandleLoginMissingFields(t *testing.T) {
	app := testApp(nil)
	app.Post("/api/auth/login", HandleLogin)

	resp, err := app.Test(postJSONRequest("/api/auth/login", LoginRequest{Username: "aicha"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleLoginUnknownRoleRejected(t *testing.T) {
	stubRemote(t, &fakeRemote{
		loginFunc: func(context.Context, string, string) (backend.Session, error) {
			return backend.Session{
				AccessToken: "jwt-token",
				User:        backend.User{Username: "x", Role: "SuperAdmin"},
			}, nil
		},
	})

	app := testApp(nil)
	app.Post("/api/auth/login", HandleLogin)

	resp, err := app.Test(postJSONRequest("/api/auth/login", LoginRequest{Username: "x", Password: "y"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleLogoutDeletesSessionAndClearsCookie(t *testing.T) {
	sessionID := uuid.New()
	var deleted []uuid.UUID

	originalDelete := deleteSessionFunc
	deleteSessionFunc = func(id uuid.UUID) error {
		deleted = append(deleted, id)
		return nil
	}
	t.Cleanup(func() { deleteSessionFunc = originalDelete })

	user := comptableUser()
	user.SessionID = sessionID

	app := testApp(user)
	app.Post("/api/auth/logout", HandleLogout)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uuid.UUID{sessionID}, deleted)

	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookie {
			assert.Empty(t, ck.Value)
		}
	}
}

func TestHandleMe(t *testing.T) {
	app := testApp(comptableUser())
	app.Get("/api/auth/me", HandleMe)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "aicha", body.Username)
	assert.Equal(t, "Comptable", body.Role)
}

func TestHandleMeWithoutUser(t *testing.T) {
	app := testApp(nil)
	app.Get("/api/auth/me", HandleMe)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleRequestReset(t *testing.T) {
	var gotEmail string
	stubRemote(t, &fakeRemote{
		requestResetFunc: func(_ context.Context, email string) error {
			gotEmail = email
			return nil
		},
	})

	app := testApp(nil)
	app.Post("/api/auth/request-reset", HandleRequestReset)

	resp, err := app.Test(postJSONRequest("/api/auth/request-reset", map[string]string{"email": "aicha@station.tn"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "aicha@station.tn", gotEmail)
}

func TestHandleConfirmReset(t *testing.T) {
	stubRemote(t, &fakeRemote{
		confirmResetFunc: func(_ context.Context, token, newPassword string) error {
			assert.Equal(t, "reset-token", token)
			assert.Equal(t, "nouveau", newPassword)
			return nil
		},
	})

	app := testApp(nil)
	app.Post("/api/auth/confirm-reset", HandleConfirmReset)

	resp, err := app.Test(postJSONRequest("/api/auth/confirm-reset",
		map[string]string{"token": "reset-token", "new_password": "nouveau"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
