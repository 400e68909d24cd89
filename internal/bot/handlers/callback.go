package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	botservice "clinic_booking_bot/internal/bot/service"
)

// CallbackHandler обрабатывает callback query от inline кнопок
type CallbackHandler struct {
	service *botservice.Service
}

// NewCallbackHandler создает новый обработчик callback query
func NewCallbackHandler(service *botservice.Service) *CallbackHandler {
	return &CallbackHandler{service: service}
}

// Handle передает выбор пользователя в диалог как обычный ответ
func (h *CallbackHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	// В личном чате идентификатор чата совпадает с идентификатором пользователя
	chatID := cb.From.ID
	if cb.Message.Message != nil {
		chatID = cb.Message.Message.Chat.ID
	}

	h.service.HandleChoice(ctx, chatID, cb.ID, cb.Data)
}
