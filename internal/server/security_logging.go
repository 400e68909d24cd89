package server

import (
	"net/http"
	"time"

	tgmodels "github.com/go-telegram/bot/models"

	"clinic_booking_bot/internal/middleware"
	"clinic_booking_bot/pkg/logger"
)

// SecurityLogger логирует события безопасности
type SecurityLogger struct {
	logger *logger.Logger
}

// NewSecurityLogger создает новый логгер безопасности
func NewSecurityLogger(log *logger.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: log.WithFields(logger.String("component", "security")),
	}
}

// LogFailedAuth логирует неудачную попытку аутентификации
func (sl *SecurityLogger) LogFailedAuth(r *http.Request, reason string) {
	sl.logger.Warn("Authentication failed",
		logger.String("reason", reason),
		logger.String("ip", middleware.ClientIP(r)),
		logger.String("user_agent", r.UserAgent()),
		logger.String("path", r.URL.Path),
	)
}

// LogValidationError логирует отклоненный запрос
func (sl *SecurityLogger) LogValidationError(r *http.Request, reason string) {
	sl.logger.Warn("Validation error",
		logger.String("reason", reason),
		logger.String("ip", middleware.ClientIP(r)),
		logger.String("path", r.URL.Path),
		logger.Int64("content_length", r.ContentLength),
	)
}

// LogTelegramUpdate логирует обработку Telegram update
func (sl *SecurityLogger) LogTelegramUpdate(update *tgmodels.Update, processingTime time.Duration) {
	var chatID int64
	var updateType string

	switch {
	case update.Message != nil:
		updateType = "message"
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil:
		updateType = "callback_query"
		chatID = update.CallbackQuery.From.ID
	}

	sl.logger.Info("Telegram update processed",
		logger.Int64("update_id", update.ID),
		logger.String("type", updateType),
		logger.Int64("chat_id", chatID),
		logger.Int64("processing_time_ms", processingTime.Milliseconds()),
	)
}

// LogSystemEvent логирует системные события
func (sl *SecurityLogger) LogSystemEvent(event string, fields ...logger.Field) {
	sl.logger.Info("System event", append([]logger.Field{logger.String("event", event)}, fields...)...)
}
