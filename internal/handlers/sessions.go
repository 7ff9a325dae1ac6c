package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/anisbt/jauge/internal/config"
	"github.com/anisbt/jauge/internal/database"
	"github.com/anisbt/jauge/internal/middleware"
)

var (
	insertSessionFunc     = insertSessionInDB
	deleteSessionFunc     = deleteSessionInDB
	sessionTokenGenerator = generateSessionToken
)

// secureCookiesEnabled determines if cookies should use Secure flag and
// SameSite=None. The config is loaded by CLI and set as env var.
func secureCookiesEnabled() bool {
	env := os.Getenv("SECURE_COOKIES")
	if env == "" {
		return true
	}
	return env == "true"
}

func sessionTTL() time.Duration {
	hours := config.DefaultSessionTTLHours
	if env := os.Getenv("SESSION_TTL_HOURS"); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	return time.Duration(hours) * time.Hour
}

// HandleLogin authenticates against the accounting backend and opens a
// dashboard session. The backend bearer token is stored server-side only;
// the browser gets an opaque session cookie.
func HandleLogin(c fiber.Ctx) error {
	var req LoginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Corps de requête invalide",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Nom d'utilisateur et mot de passe requis",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := Remote.Login(ctx, req.Username, req.Password)
	if err != nil {
		return renderBackendError(c, err)
	}

	if _, err := middleware.ParseRole(session.User.Role); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Rôle inconnu renvoyé par le service comptable",
		})
	}

	token, tokenHash, err := sessionTokenGenerator()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Échec de création de la session",
		})
	}

	sessionID := uuid.New()
	expiresAt := time.Now().Add(sessionTTL())

	if err := insertSessionFunc(sessionID, tokenHash, session.AccessToken,
		session.User.Username, session.User.Role, expiresAt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Échec de création de la session",
		})
	}

	secure := secureCookiesEnabled()
	sameSite := "Lax"
	if secure {
		sameSite = "None" // cross-domain dashboard setups
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
	})

	return c.JSON(LoginResponse{
		Username: session.User.Username,
		Email:    session.User.Email,
		Role:     session.User.Role,
	})
}

// HandleLogout closes the current dashboard session.
func HandleLogout(c fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user != nil {
		if err := deleteSessionFunc(user.SessionID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"detail": "Échec de fermeture de la session",
			})
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})

	return c.JSON(fiber.Map{"message": "Déconnecté"})
}

// HandleMe returns the authenticated user.
func HandleMe(c fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Non authentifié",
		})
	}
	return c.JSON(LoginResponse{
		Username: user.Username,
		Role:     string(user.Role),
	})
}

// HandleRequestReset proxies a password reset request to the backend.
func HandleRequestReset(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Adresse e-mail requise",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Remote.RequestReset(ctx, req.Email); err != nil {
		return renderBackendError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Si le compte existe, un e-mail a été envoyé"})
}

// HandleConfirmReset proxies a password reset confirmation to the backend.
func HandleConfirmReset(c fiber.Ctx) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Jeton et nouveau mot de passe requis",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Remote.ConfirmReset(ctx, req.Token, req.NewPassword); err != nil {
		return renderBackendError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Mot de passe mis à jour"})
}

func insertSessionInDB(sessionID uuid.UUID, tokenHash, bearerToken, username, role string, expiresAt time.Time) error {
	query := `
		INSERT INTO dashboard_session (session_id, token_hash, bearer_token, username, role, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := database.DB.Exec(query, sessionID, tokenHash, bearerToken, username, role, expiresAt)
	return err
}

func deleteSessionInDB(sessionID uuid.UUID) error {
	query := `DELETE FROM dashboard_session WHERE session_id = $1`
	_, err := database.DB.Exec(query, sessionID)
	return err
}

// generateSessionToken creates a random session token and its hash.
func generateSessionToken() (token string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(bytes)
	hash = middleware.HashToken(token)
	return token, hash, nil
}
