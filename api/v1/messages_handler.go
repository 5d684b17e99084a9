package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/karloscodes/cartridge"

	"sitebeam/internal/messages"
)

type contactParams struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateContactMessageHandler stores a contact-form submission.
func (a *API) CreateContactMessageHandler(ctx *cartridge.Context) error {
	var params contactParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
			"error": "Invalid payload",
		})
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.Status(http.StatusServiceUnavailable).JSON(map[string]interface{}{
			"error": "Message storage unavailable",
		})
	}

	msg := &messages.ContactMessage{
		Name:    params.Name,
		Email:   params.Email,
		Subject: params.Subject,
		Body:    params.Message,
	}
	if err := messages.SaveContactMessage(db, ctx.Logger, msg); err != nil {
		if errors.Is(err, messages.ErrInvalidEmail) || errors.Is(err, messages.ErrEmptyMessage) {
			return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
				"error": err.Error(),
			})
		}
		ctx.Logger.Error("Failed to save contact message", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to save message",
		})
	}

	return ctx.Status(http.StatusCreated).JSON(map[string]interface{}{"success": true})
}

type subscribeParams struct {
	Email string `json:"email"`
}

// SubscribeHandler adds a newsletter subscriber.
func (a *API) SubscribeHandler(ctx *cartridge.Context) error {
	var params subscribeParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
			"error": "Invalid payload",
		})
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.Status(http.StatusServiceUnavailable).JSON(map[string]interface{}{
			"error": "Subscription storage unavailable",
		})
	}

	if err := messages.Subscribe(db, ctx.Logger, params.Email); err != nil {
		if errors.Is(err, messages.ErrInvalidEmail) {
			return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
				"error": err.Error(),
			})
		}
		ctx.Logger.Error("Failed to subscribe", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to subscribe",
		})
	}

	return ctx.Status(http.StatusCreated).JSON(map[string]interface{}{"success": true})
}

// ListContactMessagesHandler returns submissions for the admin inbox.
func (a *API) ListContactMessagesHandler(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.JSON([]messages.ContactMessage{})
	}

	msgs, err := messages.ListContactMessages(db, 100)
	if err != nil {
		ctx.Logger.Error("Failed to list contact messages", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to list messages",
		})
	}
	return ctx.JSON(msgs)
}

// MarkMessageReadHandler flags one submission as handled.
func (a *API) MarkMessageReadHandler(ctx *cartridge.Context) error {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
			"error": "Invalid message id",
		})
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.Status(http.StatusServiceUnavailable).JSON(map[string]interface{}{
			"error": "Message storage unavailable",
		})
	}

	if err := messages.MarkContactMessageRead(db, ctx.Logger, uint(id)); err != nil {
		ctx.Logger.Error("Failed to mark message read", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to update message",
		})
	}

	return ctx.JSON(map[string]interface{}{"success": true})
}

// ListSubscribersHandler returns the active newsletter subscribers.
func (a *API) ListSubscribersHandler(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.JSON([]messages.Subscriber{})
	}

	subs, err := messages.ListSubscribers(db)
	if err != nil {
		ctx.Logger.Error("Failed to list subscribers", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to list subscribers",
		})
	}
	return ctx.JSON(subs)
}
