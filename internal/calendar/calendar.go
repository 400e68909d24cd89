package calendar

import (
	"fmt"
	"strings"
	"time"

	"clinic_booking_bot/pkg/errors"
)

// DateLayout формат дат записи
const DateLayout = "2006-01-02"

// ClosedDay день недели, в который клиника не принимает
const ClosedDay = time.Sunday

// WeeklyRules сопоставляет день недели с упорядоченным набором часов приема.
// Пустой набор означает выходной.
type WeeklyRules map[time.Weekday][]int

var (
	weekdayHours  = []int{9, 10, 11, 13, 14, 15, 16}
	saturdayHours = []int{10, 11, 13}
)

// DefaultRules возвращает расписание клиники: будни 9-16 с обедом в 12,
// суббота 10-13 с обедом в 12, воскресенье выходной
func DefaultRules() WeeklyRules {
	rules := WeeklyRules{
		time.Saturday: saturdayHours,
		ClosedDay:     nil,
	}
	for d := time.Monday; d <= time.Friday; d++ {
		rules[d] = weekdayHours
	}
	return rules
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.ErrInvalidDateFormat.WithError(err).WithContext(map[string]interface{}{
			"date": s,
		})
	}
	return d, nil
}

// CandidateSlots возвращает часы приема для даты.
// Возвращается копия, вызывающий может ее изменять.
func (r WeeklyRules) CandidateSlots(date string) ([]int, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	hours := r[d.Weekday()]
	out := make([]int, len(hours))
	copy(out, hours)
	return out, nil
}

// IsClosed проверяет, что в этот день нет приема
func (r WeeklyRules) IsClosed(day time.Weekday) bool {
	return len(r[day]) == 0
}

// Allows проверяет, что час входит в расписание дня
func (r WeeklyRules) Allows(day time.Weekday, hour int) bool {
	for _, h := range r[day] {
		if h == hour {
			return true
		}
	}
	return false
}

// CandidateSlots вычисляет часы приема по расписанию по умолчанию
func CandidateSlots(date string) ([]int, error) {
	return DefaultRules().CandidateSlots(date)
}

// FormatHour переводит час в 12-часовой формат: 9 AM, 12 PM, 1 PM
func FormatHour(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

// Today возвращает текущую дату в часовом поясе клиники как полночь UTC,
// чтобы ее можно было сравнивать с результатом ParseDate
func Today(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
