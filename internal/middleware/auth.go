package middleware

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/anisbt/jauge/internal/database"
)

// SessionCookie is the dashboard session cookie name.
const SessionCookie = "jauge_session"

// UserContext is the authenticated dashboard user, loaded once per request.
// BearerToken is the backend token stored at login; handlers forward it on
// every proxied call.
type UserContext struct {
	SessionID   uuid.UUID
	Username    string
	Role        Role
	BearerToken string
}

// sessionValidator resolves a token hash to a user context (mocked in tests)
var sessionValidator = validateSessionFromDB

// Auth validates the dashboard session and loads the user context. The
// session token comes from the cookie, or from the Authorization header for
// API clients.
func Auth(c fiber.Ctx) error {
	token := c.Cookies(SessionCookie)
	if token == "" {
		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Non authentifié",
		})
	}

	user, err := sessionValidator(HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Session invalide ou expirée",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Erreur d'authentification",
		})
	}

	c.Locals("user", user)
	return c.Next()
}

// GetUser retrieves the authenticated user from the request context.
func GetUser(c fiber.Ctx) *UserContext {
	if user, ok := c.Locals("user").(*UserContext); ok {
		return user
	}
	return nil
}

// HashToken is the SHA-256 digest stored in place of the raw session token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validateSessionFromDB(tokenHash string) (*UserContext, error) {
	var (
		user UserContext
		role string
	)
	query := `
		SELECT session_id, username, role, bearer_token
		FROM dashboard_session
		WHERE token_hash = $1 AND expires_at > $2`

	err := database.DB.QueryRow(query, tokenHash, time.Now()).Scan(
		&user.SessionID,
		&user.Username,
		&role,
		&user.BearerToken,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed
	return &user, nil
}
