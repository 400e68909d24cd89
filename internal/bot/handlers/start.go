package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	botservice "clinic_booking_bot/internal/bot/service"
)

// StartHandler обрабатывает команду /start
type StartHandler struct {
	service *botservice.Service
}

// NewStartHandler создает новый обработчик команды /start
func NewStartHandler(service *botservice.Service) *StartHandler {
	return &StartHandler{service: service}
}

// Handle отправляет приветствие. Активная сессия записи не прерывается.
func (h *StartHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.service.Welcome(ctx, update.Message.Chat.ID)
}

// BookHandler обрабатывает команду /book
type BookHandler struct {
	service *botservice.Service
}

// NewBookHandler создает новый обработчик команды /book
func NewBookHandler(service *botservice.Service) *BookHandler {
	return &BookHandler{service: service}
}

// Handle начинает новую запись
func (h *BookHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.service.StartBooking(ctx, update.Message.Chat.ID)
}

// CancelHandler обрабатывает команду /cancel
type CancelHandler struct {
	service *botservice.Service
}

// NewCancelHandler создает новый обработчик команды /cancel
func NewCancelHandler(service *botservice.Service) *CancelHandler {
	return &CancelHandler{service: service}
}

// Handle прерывает текущую запись
func (h *CancelHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.service.CancelBooking(ctx, update.Message.Chat.ID)
}
