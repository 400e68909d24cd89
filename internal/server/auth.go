package server

import (
	"crypto/subtle"
	"net/http"

	tgmodels "github.com/go-telegram/bot/models"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// webhookAuthMiddleware проверяет секретный токен, который Telegram передает
// в заголовке каждого webhook запроса. Пустой токен в конфигурации отключает проверку.
func (s *Server) webhookAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.Telegram.SecretToken
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			s.securityLogger.LogFailedAuth(r, "invalid secret token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validateTelegramUpdate проверяет базовую валидность Telegram update
func validateTelegramUpdate(update *tgmodels.Update) string {
	if update.ID <= 0 {
		return "missing update_id"
	}

	switch {
	case update.Message != nil:
		if update.Message.From != nil && update.Message.From.IsBot {
			return "message from bot"
		}
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From.IsBot {
			return "callback from bot"
		}
	}

	return ""
}
