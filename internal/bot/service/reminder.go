package service

import (
	"context"

	"github.com/go-telegram/bot"

	"clinic_booking_bot/internal/scheduler"
	"clinic_booking_bot/pkg/errors"
)

// ReminderSender отправляет напоминания о приеме через Telegram
type ReminderSender struct {
	sender Sender
	clinic string
}

var _ scheduler.ReminderSender = (*ReminderSender)(nil)

// NewReminderSender создает отправителя напоминаний
func NewReminderSender(sender Sender, clinic string) *ReminderSender {
	return &ReminderSender{sender: sender, clinic: clinic}
}

// SendReminder отправляет напоминание пользователю
func (s *ReminderSender) SendReminder(ctx context.Context, r scheduler.Reminder) error {
	params := &bot.SendMessageParams{
		ChatID: r.ChatID,
		Text:   scheduler.ReminderText(s.clinic, r.Booking),
	}

	if _, err := s.sender.SendMessage(ctx, params); err != nil {
		return errors.ErrTelegramAPI.WithError(err).WithContext(map[string]interface{}{
			"chat_id": r.ChatID,
			"slot":    r.Key(),
		})
	}
	return nil
}
