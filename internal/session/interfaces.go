// Package session хранит незавершенные диалоги записи между сообщениями
// транспорта (Telegram). Консольный режим держит состояние в памяти сам.
package session

import (
	"context"
	"time"

	"clinic_booking_bot/internal/dialogue"
)

// DefaultTTL время жизни неактивной сессии
const DefaultTTL = 30 * time.Minute

// Store интерфейс хранилища сессий по идентификатору чата
type Store interface {
	// Get возвращает сессию чата или nil, если ее нет или она истекла
	Get(ctx context.Context, chatID int64) (*dialogue.State, error)
	Put(ctx context.Context, chatID int64, st *dialogue.State) error
	Delete(ctx context.Context, chatID int64) error
	Ping(ctx context.Context) error
	Close() error
}
