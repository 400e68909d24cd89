package dialogue

import (
	"context"
	"strings"

	"clinic_booking_bot/internal/extractor"
)

var bookingTriggers = []string{"book", "appointment", "schedule"}

// WantsBooking определяет, просит ли пользователь записаться. Дешевая
// проверка по ключевым словам отсекает большинство реплик до обращения
// к извлекателю.
func WantsBooking(ctx context.Context, x extractor.Extractor, text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}

	triggered := lower == "yes"
	for _, t := range bookingTriggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return false
	}

	res, err := x.Extract(ctx, extractor.IntentRequest{Utterance: text})
	if err != nil {
		return false
	}
	return res.BookingIntent
}
