package scheduler

import (
	"context"
	"fmt"
	"time"

	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/storage/models"
)

// Reminder напоминание о записи на прием
type Reminder struct {
	ChatID  int64
	Booking models.Booking
	// At момент отправки напоминания
	At time.Time
}

// Key идентифицирует напоминание: один слот, одно напоминание
func (r Reminder) Key() string {
	return r.Booking.SlotKey()
}

// ReminderScheduler определяет интерфейс для планирования напоминаний
type ReminderScheduler interface {
	// Schedule планирует напоминание; прежнее напоминание на тот же слот заменяется
	Schedule(ctx context.Context, r Reminder) error

	// Cancel отменяет запланированное напоминание
	Cancel(ctx context.Context, key string) error

	// Start запускает планировщик
	Start(ctx context.Context) error

	// Stop останавливает планировщик
	Stop() error
}

// ReminderSender определяет интерфейс для отправки напоминаний
type ReminderSender interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// AppointmentStart возвращает начало приема в часовом поясе клиники
func AppointmentStart(b models.Booking, loc *time.Location) (time.Time, error) {
	date, err := calendar.ParseDate(b.Date)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := b.Hour()
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder for %s: %w", b.Date, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc), nil
}

// NewReminder строит напоминание за lead до начала приема
func NewReminder(chatID int64, b models.Booking, loc *time.Location, lead time.Duration) (Reminder, error) {
	start, err := AppointmentStart(b, loc)
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{
		ChatID:  chatID,
		Booking: b,
		At:      start.Add(-lead),
	}, nil
}

// ReminderText текст напоминания
func ReminderText(clinic string, b models.Booking) string {
	hour, err := b.Hour()
	when := b.Time
	if err == nil {
		when = calendar.FormatHour(hour)
	}
	return fmt.Sprintf("Reminder: %s, your appointment at %s is on %s at %s.", b.Name, clinic, b.Date, when)
}
