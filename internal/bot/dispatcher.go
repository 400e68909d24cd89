package bot

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"clinic_booking_bot/internal/bot/handlers"
	"clinic_booking_bot/internal/bot/service"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// Dispatcher управляет обработкой входящих обновлений от Telegram
type Dispatcher struct {
	startHandler    *handlers.StartHandler
	bookHandler     *handlers.BookHandler
	cancelHandler   *handlers.CancelHandler
	callbackHandler *handlers.CallbackHandler
	defaultHandler  *handlers.DefaultHandler
	logger          *logger.Logger
}

// NewDispatcher создает новый диспетчер обновлений
func NewDispatcher(service *service.Service, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		startHandler:    handlers.NewStartHandler(service),
		bookHandler:     handlers.NewBookHandler(service),
		cancelHandler:   handlers.NewCancelHandler(service),
		callbackHandler: handlers.NewCallbackHandler(service),
		defaultHandler:  handlers.NewDefaultHandler(service),
		logger:          log,
	}
}

// HandleUpdate обрабатывает входящее обновление от Telegram
func (d *Dispatcher) HandleUpdate(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		d.logger.Debug("Received callback query",
			logger.Int64("user_id", update.CallbackQuery.From.ID),
			logger.String("data", update.CallbackQuery.Data),
		)
		metrics.RecordTelegramUpdate("callback")
		d.callbackHandler.Handle(ctx, bot, update)
		return
	}

	if update.Message != nil {
		d.logger.Debug("Received message",
			logger.Int64("chat_id", update.Message.Chat.ID),
			logger.Int("length", len(update.Message.Text)),
		)

		switch command(update.Message.Text) {
		case "/start":
			metrics.RecordTelegramUpdate("start")
			d.startHandler.Handle(ctx, bot, update)
		case "/book":
			metrics.RecordTelegramUpdate("book")
			d.bookHandler.Handle(ctx, bot, update)
		case "/cancel":
			metrics.RecordTelegramUpdate("cancel")
			d.cancelHandler.Handle(ctx, bot, update)
		default:
			metrics.RecordTelegramUpdate("message")
			d.defaultHandler.Handle(ctx, bot, update)
		}
		return
	}

	d.logger.Debug("Received unsupported update type", logger.Int64("update_id", update.ID))
}

// command возвращает команду без упоминания бота: "/book@clinic_bot now" -> "/book"
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
