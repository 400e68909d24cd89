package ledger

import (
	"context"
	"fmt"
	"sync"

	"clinic_booking_bot/internal/storage"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// Ledger держит журнал записей в памяти и сбрасывает его в хранилище целиком.
// Все изменения и чтения проходят через один мьютекс.
type Ledger struct {
	mu       sync.Mutex
	store    storage.LedgerStore
	bookings []models.Booking
	logger   *logger.Logger
}

// Open загружает журнал из хранилища. Ошибка чтения возвращается
// вызывающему, пустой журнал вместо нее не подставляется.
func Open(ctx context.Context, store storage.LedgerStore, log *logger.Logger) (*Ledger, error) {
	bookings, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrStorageRead) {
			err = errors.ErrStorageRead.WithError(err)
		}
		return nil, err
	}

	l := &Ledger{
		store:    store,
		bookings: bookings,
		logger:   log,
	}
	metrics.SetLedgerSize(float64(len(bookings)))
	log.Info("Booking ledger loaded", logger.Int("bookings", len(bookings)))
	return l, nil
}

// Append добавляет запись, если слот (дата, час) свободен
func (l *Ledger) Append(b models.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(b)
}

func (l *Ledger) appendLocked(b models.Booking) error {
	hour, err := b.Hour()
	if err != nil {
		return errors.ErrInvalidHour.WithError(err)
	}

	for _, existing := range l.bookings {
		if existing.Date != b.Date {
			continue
		}
		h, err := existing.Hour()
		if err != nil {
			continue
		}
		if h == hour {
			return errors.ErrDuplicateSlot.WithContext(map[string]interface{}{
				"date": b.Date,
				"time": hour,
			})
		}
	}

	l.bookings = append(l.bookings, b)
	metrics.SetLedgerSize(float64(len(l.bookings)))
	return nil
}

// Save записывает весь журнал в хранилище
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) error {
	snapshot := make([]models.Booking, len(l.bookings))
	copy(snapshot, l.bookings)

	if err := l.store.Save(ctx, snapshot); err != nil {
		if !errors.Is(err, errors.ErrStorageWrite) {
			err = errors.ErrStorageWrite.WithError(err)
		}
		return err
	}
	return nil
}

// Commit добавляет запись и сохраняет журнал под одной блокировкой.
// Если сохранение не удалось, запись остается в памяти и попадет
// в хранилище при следующем успешном сохранении; ошибка возвращается.
func (l *Ledger) Commit(ctx context.Context, b models.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.appendLocked(b); err != nil {
		return err
	}

	if err := l.saveLocked(ctx); err != nil {
		l.logger.Error("Booking kept in memory but ledger save failed",
			logger.String("date", b.Date),
			logger.String("time", b.Time),
			logger.Error(err),
		)
		metrics.RecordError("ledger", "save")
		return fmt.Errorf("booking appended but not persisted: %w", err)
	}
	return nil
}

// Snapshot возвращает копию всех записей
func (l *Ledger) Snapshot() []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Booking, len(l.bookings))
	copy(out, l.bookings)
	return out
}

// BookingsOn возвращает записи на дату
func (l *Ledger) BookingsOn(date string) []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Booking
	for _, b := range l.bookings {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out
}

// Len возвращает количество записей
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bookings)
}

// Ping проверяет доступность хранилища
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}
