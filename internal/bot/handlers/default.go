package handlers

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	botservice "clinic_booking_bot/internal/bot/service"
)

// DefaultHandler обрабатывает все сообщения, кроме команд
type DefaultHandler struct {
	service *botservice.Service
}

// NewDefaultHandler создает новый обработчик по умолчанию
func NewDefaultHandler(service *botservice.Service) *DefaultHandler {
	return &DefaultHandler{service: service}
}

// Handle передает текст в диалог записи
func (h *DefaultHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		h.service.HandleNonText(ctx, chatID)
		return
	}

	h.service.HandleText(ctx, chatID, text)
}
