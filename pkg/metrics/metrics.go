package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ассистента записи
var (
	// Метрики диалога
	DialogueTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_dialogue_turns_total",
			Help: "Количество обработанных реплик по фазам диалога",
		},
		[]string{"phase"},
	)

	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_sessions_started_total",
			Help: "Количество начатых диалогов записи",
		},
		[]string{"channel"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_booking_active_sessions",
			Help: "Количество активных диалогов записи",
		},
	)

	TelegramUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_telegram_updates_total",
			Help: "Количество обновлений Telegram по типам",
		},
		[]string{"kind"},
	)

	// Метрики записей
	BookingsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_bookings_committed_total",
			Help: "Количество подтвержденных записей",
		},
		[]string{"persisted"},
	)

	BookingsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_bookings_cancelled_total",
			Help: "Количество отмененных диалогов по причинам",
		},
		[]string{"reason"},
	)

	AvailableSlots = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clinic_booking_available_slots",
			Help: "Количество свободных слотов по датам",
		},
		[]string{"date"},
	)

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_booking_ledger_size",
			Help: "Количество записей в журнале",
		},
	)

	// Метрики извлечения полей
	ExtractorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_extractor_calls_total",
			Help: "Количество обращений к извлекателю полей",
		},
		[]string{"kind", "status"},
	)

	ExtractorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_booking_extractor_duration_seconds",
			Help:    "Время извлечения полей в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Метрики уведомлений
	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_reminders_sent_total",
			Help: "Количество отправленных напоминаний",
		},
		[]string{"status"},
	)

	PendingReminders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_booking_pending_reminders",
			Help: "Количество запланированных напоминаний",
		},
	)

	// Метрики хранилища
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_storage_operations_total",
			Help: "Количество операций с хранилищем",
		},
		[]string{"operation", "backend", "status"},
	)

	// Метрики производительности
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_booking_memory_usage_bytes",
			Help: "Использование памяти в байтах",
		},
	)

	GoroutinesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_booking_goroutines_count",
			Help: "Количество активных горутин",
		},
	)

	// Метрики ошибок
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_errors_total",
			Help: "Общее количество ошибок",
		},
		[]string{"component", "error_type"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_booking_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_booking_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordTurn записывает реплику в фазе диалога
func RecordTurn(phase string) {
	DialogueTurns.WithLabelValues(phase).Inc()
}

// RecordSessionStart записывает начало диалога
func RecordSessionStart(channel string) {
	SessionsStarted.WithLabelValues(channel).Inc()
}

// RecordTelegramUpdate записывает входящее обновление Telegram
func RecordTelegramUpdate(kind string) {
	TelegramUpdates.WithLabelValues(kind).Inc()
}

// RecordCommit записывает подтвержденную запись
func RecordCommit(persisted bool) {
	label := "true"
	if !persisted {
		label = "false"
	}
	BookingsCommitted.WithLabelValues(label).Inc()
}

// RecordCancel записывает отмену диалога
func RecordCancel(reason string) {
	BookingsCancelled.WithLabelValues(reason).Inc()
}

// RecordExtraction записывает обращение к извлекателю
func RecordExtraction(kind, status string, seconds float64) {
	ExtractorCalls.WithLabelValues(kind, status).Inc()
	ExtractorDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordReminder записывает метрику отправки напоминания
func RecordReminder(status string) {
	RemindersSent.WithLabelValues(status).Inc()
}

// RecordStorageOperation записывает метрику операции с хранилищем
func RecordStorageOperation(operation, backend, status string) {
	StorageOperations.WithLabelValues(operation, backend, status).Inc()
}

// RecordError записывает метрику ошибки
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// SetAvailableSlots устанавливает количество свободных слотов для даты
func SetAvailableSlots(date string, count float64) {
	AvailableSlots.WithLabelValues(date).Set(count)
}

// SetLedgerSize устанавливает размер журнала
func SetLedgerSize(count float64) {
	LedgerSize.Set(count)
}

// SetPendingReminders устанавливает количество запланированных напоминаний
func SetPendingReminders(count float64) {
	PendingReminders.Set(count)
}
