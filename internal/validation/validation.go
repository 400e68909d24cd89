package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
)

// Регулярные выражения для валидации
var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	hourRegex = regexp.MustCompile(`^\d{1,2}$`)
)

const maxNameLength = 100

// ValidateDate проверяет дату записи: формат YYYY-MM-DD, строго после today,
// не выходной день. today должен быть получен через calendar.Today.
func ValidateDate(dateStr string, today time.Time, rules calendar.WeeklyRules) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if !dateRegex.MatchString(dateStr) {
		return time.Time{}, errors.ErrInvalidDateFormat.WithContext(map[string]interface{}{
			"date":   dateStr,
			"reason": "дата должна быть в формате YYYY-MM-DD",
		})
	}

	date, err := calendar.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}

	if !date.After(today) {
		return time.Time{}, errors.ErrDateInPast.WithContext(map[string]interface{}{
			"date":  dateStr,
			"today": today.Format(calendar.DateLayout),
		})
	}

	if rules.IsClosed(date.Weekday()) {
		return time.Time{}, errors.ErrClosedDay.WithContext(map[string]interface{}{
			"date":    dateStr,
			"weekday": date.Weekday().String(),
		})
	}

	return date, nil
}

// ValidateHour проверяет, что час лежит в диапазоне суток
func ValidateHour(hour int) error {
	if hour < 0 || hour > 23 {
		return errors.ErrInvalidHour.WithContext(map[string]interface{}{
			"hour": hour,
		})
	}
	return nil
}

// ValidateHourString разбирает и проверяет час, записанный строкой
func ValidateHourString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !hourRegex.MatchString(s) {
		return 0, errors.ErrInvalidHour.WithContext(map[string]interface{}{
			"hour": s,
		})
	}
	h, err := models.Booking{Time: s}.Hour()
	if err != nil {
		return 0, errors.ErrInvalidHour.WithError(err)
	}
	return h, ValidateHour(h)
}

// ValidateName проверяет имя пациента
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "false") || strings.EqualFold(name, "null") {
		return errors.ErrInvalidName.WithContext("имя не может быть пустым")
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return errors.ErrInvalidName.WithContext("имя слишком длинное (максимум 100 символов)")
	}

	return nil
}

// ValidateBooking проверяет инварианты записи на момент создания:
// имя задано, дата в будущем и не выходной, час входит в расписание дня
func ValidateBooking(b models.Booking, today time.Time, rules calendar.WeeklyRules) error {
	if err := ValidateName(b.Name); err != nil {
		return err
	}

	date, err := ValidateDate(b.Date, today, rules)
	if err != nil {
		return err
	}

	hour, err := ValidateHourString(b.Time)
	if err != nil {
		return err
	}

	if !rules.Allows(date.Weekday(), hour) {
		return errors.ErrSlotUnavailable.WithContext(map[string]interface{}{
			"date": b.Date,
			"hour": hour,
		})
	}

	return nil
}
