package errors

import (
	stderrors "errors"
	"fmt"
)

// BotError представляет ошибку ассистента записи с кодом и контекстом
type BotError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *BotError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, поэтому копии из WithError/WithContext
// совпадают с предопределенными значениями
func (e *BotError) Is(target error) bool {
	t, ok := target.(*BotError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext добавляет контекст к ошибке
func (e *BotError) WithContext(ctx interface{}) *BotError {
	return &BotError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// WithError добавляет underlying ошибку
func (e *BotError) WithError(err error) *BotError {
	return &BotError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// Предопределенные ошибки
var (
	// Ошибки календаря и валидации
	ErrInvalidDateFormat = &BotError{
		Code:    "INVALID_DATE_FORMAT",
		Message: "date is not in YYYY-MM-DD format",
	}

	ErrDateInPast = &BotError{
		Code:    "DATE_IN_PAST",
		Message: "date must be after today",
	}

	ErrClosedDay = &BotError{
		Code:    "CLOSED_DAY",
		Message: "clinic is closed on that day",
	}

	ErrNoAvailableSlots = &BotError{
		Code:    "NO_AVAILABLE_SLOTS",
		Message: "no available slots on the selected date",
	}

	ErrSlotUnavailable = &BotError{
		Code:    "SLOT_UNAVAILABLE",
		Message: "slot is not available",
	}

	ErrInvalidHour = &BotError{
		Code:    "INVALID_HOUR",
		Message: "hour is out of range",
	}

	ErrInvalidName = &BotError{
		Code:    "INVALID_NAME",
		Message: "name is empty",
	}

	// Ошибки журнала записей
	ErrStorageRead = &BotError{
		Code:    "STORAGE_READ",
		Message: "failed to read booking ledger",
	}

	ErrStorageWrite = &BotError{
		Code:    "STORAGE_WRITE",
		Message: "failed to write booking ledger",
	}

	ErrDuplicateSlot = &BotError{
		Code:    "DUPLICATE_SLOT",
		Message: "slot is already booked",
	}

	// Ошибки извлечения полей
	ErrUndeterminable = &BotError{
		Code:    "UNDETERMINABLE",
		Message: "field could not be determined",
	}

	// Системные ошибки
	ErrSessionStore = &BotError{
		Code:    "SESSION_STORE",
		Message: "session store failure",
	}

	ErrConfigurationInvalid = &BotError{
		Code:    "CONFIGURATION_INVALID",
		Message: "invalid configuration",
	}

	ErrTelegramAPI = &BotError{
		Code:    "TELEGRAM_API",
		Message: "Telegram API error",
	}
)

// NewBotError создает новую ошибку
func NewBotError(code, message string) *BotError {
	return &BotError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает обычную ошибку в BotError
func Wrap(err error, code, message string) *BotError {
	return &BotError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsBotError проверяет, содержит ли цепочка ошибок BotError
func IsBotError(err error) bool {
	_, ok := GetBotError(err)
	return ok
}

// GetBotError извлекает первый BotError из цепочки
func GetBotError(err error) (*BotError, bool) {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr, true
	}
	return nil, false
}

// Is повторяет errors.Is, чтобы пакеты не импортировали оба errors
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// CodeOf возвращает код первой BotError в цепочке или пустую строку
func CodeOf(err error) string {
	if botErr, ok := GetBotError(err); ok {
		return botErr.Code
	}
	return ""
}
