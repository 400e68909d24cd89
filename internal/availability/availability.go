package availability

import (
	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// AvailableSlots возвращает свободные часы на дату: часы расписания за
// вычетом занятых в журнале. Записи с неразборчивым часом пропускаются.
func AvailableSlots(bookings []models.Booking, rules calendar.WeeklyRules, date string, log *logger.Logger) ([]int, error) {
	candidates, err := rules.CandidateSlots(date)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	taken := make(map[int]bool)
	for _, b := range bookings {
		if b.Date != date {
			continue
		}
		h, err := b.Hour()
		if err != nil {
			log.Warn("Skipping booking with malformed time",
				logger.String("date", b.Date),
				logger.String("time", b.Time),
				logger.Error(err),
			)
			metrics.RecordError("availability", "malformed_time")
			continue
		}
		taken[h] = true
	}

	free := candidates[:0]
	for _, h := range candidates {
		if !taken[h] {
			free = append(free, h)
		}
	}
	return free, nil
}

// Snapshotter отдает согласованную копию журнала
type Snapshotter interface {
	Snapshot() []models.Booking
}

// Resolver вычисляет свободные слоты по снимку журнала
type Resolver struct {
	ledger Snapshotter
	rules  calendar.WeeklyRules
	logger *logger.Logger
}

// NewResolver создает резолвер свободных слотов
func NewResolver(ledger Snapshotter, rules calendar.WeeklyRules, log *logger.Logger) *Resolver {
	return &Resolver{
		ledger: ledger,
		rules:  rules,
		logger: log,
	}
}

// Rules возвращает расписание, по которому работает резолвер
func (r *Resolver) Rules() calendar.WeeklyRules {
	return r.rules
}

// AvailableSlots возвращает свободные часы на дату
func (r *Resolver) AvailableSlots(date string) ([]int, error) {
	slots, err := AvailableSlots(r.ledger.Snapshot(), r.rules, date, r.logger)
	if err != nil {
		return nil, err
	}
	metrics.SetAvailableSlots(date, float64(len(slots)))
	return slots, nil
}
