package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/karloscodes/cartridge"

	"sitebeam/internal/auth"
	"sitebeam/internal/users"
)

type loginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies admin credentials and issues a bearer token.
func (a *API) LoginHandler(ctx *cartridge.Context) error {
	var params loginParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
			"error": "Invalid login payload",
		})
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		// No database means no admin accounts to check against.
		return ctx.Status(http.StatusUnauthorized).JSON(map[string]interface{}{
			"error": "Invalid credentials",
		})
	}

	user, err := users.VerifyCredentials(db, params.Email, params.Password)
	if err != nil {
		ctx.Logger.Info("Rejected login attempt", slog.String("email", params.Email))
		return ctx.Status(http.StatusUnauthorized).JSON(map[string]interface{}{
			"error": "Invalid credentials",
		})
	}

	ttl := time.Duration(a.cfg.LoginTokenTTLSeconds) * time.Second
	token, err := auth.IssueToken(a.cfg.PrivateKey, user.ID, user.Email, ttl)
	if err != nil {
		ctx.Logger.Error("Failed to issue token", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to issue token",
		})
	}

	return ctx.JSON(map[string]interface{}{
		"token":     token,
		"expiresAt": time.Now().UTC().Add(ttl).Format(time.RFC3339),
	})
}
