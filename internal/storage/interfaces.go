package storage

import (
	"context"

	"clinic_booking_bot/internal/storage/models"
)

// LedgerStore определяет постоянное хранилище журнала записей.
// Журнал читается и записывается целиком.
type LedgerStore interface {
	// Load читает все записи в порядке добавления
	Load(ctx context.Context) ([]models.Booking, error)

	// Save атомарно заменяет содержимое хранилища
	Save(ctx context.Context, bookings []models.Booking) error

	Ping(ctx context.Context) error
	Close() error
}
