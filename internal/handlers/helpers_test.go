package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/middleware"
)

// fakeRemote lets each test script exactly the backend calls it expects.
type fakeRemote struct {
	loginFunc        func(ctx context.Context, username, password string) (backend.Session, error)
	requestResetFunc func(ctx context.Context, email string) error
	confirmResetFunc func(ctx context.Context, token, newPassword string) error
	listFilesFunc    func(ctx context.Context, token string, filter backend.FileFilter) ([]backend.RemoteFile, error)
	deleteFileFunc   func(ctx context.Context, token string, id int) error
	ackAlertFunc     func(ctx context.Context, token string, id int) error
	closeAlertFunc   func(ctx context.Context, token string, id int) error
}

func (f *fakeRemote) Login(ctx context.Context, username, password string) (backend.Session, error) {
	return f.loginFunc(ctx, username, password)
}

func (f *fakeRemote) RequestReset(ctx context.Context, email string) error {
	return f.requestResetFunc(ctx, email)
}

func (f *fakeRemote) ConfirmReset(ctx context.Context, token, newPassword string) error {
	return f.confirmResetFunc(ctx, token, newPassword)
}

func (f *fakeRemote) ListFiles(ctx context.Context, token string, filter backend.FileFilter) ([]backend.RemoteFile, error) {
	return f.listFilesFunc(ctx, token, filter)
}

func (f *fakeRemote) DeleteFile(ctx context.Context, token string, id int) error {
	return f.deleteFileFunc(ctx, token, id)
}

func (f *fakeRemote) AckAlert(ctx context.Context, token string, id int) error {
	return f.ackAlertFunc(ctx, token, id)
}

func (f *fakeRemote) CloseAlert(ctx context.Context, token string, id int) error {
	return f.closeAlertFunc(ctx, token, id)
}

func stubRemote(t *testing.T, fake *fakeRemote) {
	t.Helper()
	original := Remote
	Remote = fake
	t.Cleanup(func() { Remote = original })
}

// testApp injects a fixed user context so handler tests skip the auth
// middleware entirely.
func testApp(user *middleware.UserContext) *fiber.App {
	app := fiber.New()
	if user != nil {
		app.Use(func(c fiber.Ctx) error {
			c.Locals("user", user)
			return c.Next()
		})
	}
	return app
}

func comptableUser() *middleware.UserContext {
	return &middleware.UserContext{
		Username:    "aicha",
		Role:        middleware.RoleComptable,
		BearerToken: "jwt-token",
	}
}
