package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/internal/storage/sqlite"
	"clinic_booking_bot/pkg/logger"
)

// SetupTestDB создает in-memory SQLite базу данных для тестов
func SetupTestDB(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	storage, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		storage.Close()
	})

	return storage
}

// SetupTestLogger создает тестовый логгер
func SetupTestLogger() *logger.Logger {
	return logger.NewNop()
}

// TestContext создает контекст для тестов
func TestContext() context.Context {
	return context.Background()
}

// MemoryStore хранилище журнала в памяти с управляемыми ошибками
type MemoryStore struct {
	mu        sync.Mutex
	bookings  []models.Booking
	LoadErr   error
	SaveErr   error
	PingErr   error
	SaveCalls int
}

// NewMemoryStore создает хранилище с начальными записями
func NewMemoryStore(bookings ...models.Booking) *MemoryStore {
	return &MemoryStore{bookings: append([]models.Booking(nil), bookings...)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]models.Booking(nil), s.bookings...), nil
}

func (s *MemoryStore) Save(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.bookings = append([]models.Booking(nil), bookings...)
	return nil
}

// Saved возвращает последнее успешно сохраненное состояние
func (s *MemoryStore) Saved() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Booking(nil), s.bookings...)
}

// SetSaveErr переключает ошибку сохранения
func (s *MemoryStore) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveErr = err
}

func (s *MemoryStore) Ping(ctx context.Context) error { return s.PingErr }

func (s *MemoryStore) Close() error { return nil }

// NextWeekday возвращает ближайшую дату строго после from с заданным днем недели
func NextWeekday(from time.Time, day time.Weekday) time.Time {
	d := from.AddDate(0, 0, 1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// FixedClock возвращает функцию времени с постоянным значением
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
