package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinic_booking_bot/internal/scheduler"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// MemoryScheduler реализует планировщик напоминаний на таймерах в памяти.
// После перезапуска процесса напоминания не восстанавливаются.
type MemoryScheduler struct {
	timers   map[string]*time.Timer
	mu       sync.RWMutex
	sender   scheduler.ReminderSender
	logger   *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  bool
	stopOnce sync.Once
}

var _ scheduler.ReminderScheduler = (*MemoryScheduler)(nil)

// NewMemoryScheduler создает новый планировщик в памяти
func NewMemoryScheduler(sender scheduler.ReminderSender, log *logger.Logger) *MemoryScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryScheduler{
		timers: make(map[string]*time.Timer),
		sender: sender,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start запускает планировщик
func (s *MemoryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	// Таймеры работают сами по себе
	return nil
}

// Schedule планирует напоминание
func (s *MemoryScheduler) Schedule(ctx context.Context, r scheduler.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	key := r.Key()
	if timer, exists := s.timers[key]; exists {
		timer.Stop()
		delete(s.timers, key)
	}

	delay := time.Until(r.At)
	if delay <= 0 {
		// Время напоминания уже прошло, отправляем сразу
		go s.handleReminder(key, r)
		return nil
	}

	s.timers[key] = time.AfterFunc(delay, func() {
		s.handleReminder(key, r)
	})
	metrics.SetPendingReminders(float64(len(s.timers)))

	s.logger.Debug("Reminder scheduled",
		logger.String("slot", key),
		logger.Int64("chat_id", r.ChatID),
		logger.Duration("delay", delay),
	)
	return nil
}

// Cancel отменяет запланированное напоминание
func (s *MemoryScheduler) Cancel(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.timers[key]; exists {
		timer.Stop()
		delete(s.timers, key)
		metrics.SetPendingReminders(float64(len(s.timers)))
	}

	return nil
}

// Stop останавливает планировщик
func (s *MemoryScheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.stopped = true
		for key, timer := range s.timers {
			timer.Stop()
			delete(s.timers, key)
		}
		metrics.SetPendingReminders(0)
		s.cancel()
	})

	return nil
}

func (s *MemoryScheduler) handleReminder(key string, r scheduler.Reminder) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	metrics.SetPendingReminders(float64(len(s.timers)))
	s.mu.Unlock()

	if err := s.sender.SendReminder(s.ctx, r); err != nil {
		s.logger.Error("Failed to send reminder",
			logger.String("slot", key),
			logger.Int64("chat_id", r.ChatID),
			logger.Error(err),
		)
		metrics.RecordReminder("error")
		return
	}
	metrics.RecordReminder("sent")
}

// GetActiveTimersCount возвращает количество активных таймеров
func (s *MemoryScheduler) GetActiveTimersCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.timers)
}
