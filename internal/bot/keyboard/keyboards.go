package keyboard

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"clinic_booking_bot/internal/calendar"
)

const (
	prefixSlot    = "SLOT:"
	prefixConfirm = "CONFIRM:"
	dataBack      = "BACK"

	slotsPerRow = 2
)

// CreateSlotSelectionKeyboard создает inline клавиатуру для выбора часа,
// по два слота в ряд и кнопка возврата к выбору даты
func CreateSlotSelectionKeyboard(slots []int) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	var row []models.InlineKeyboardButton
	for _, h := range slots {
		row = append(row, models.InlineKeyboardButton{
			Text:         calendar.FormatHour(h),
			CallbackData: prefixSlot + strconv.Itoa(h),
		})
		if len(row) == slotsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "Another date", CallbackData: dataBack},
	})

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// CreateConfirmKeyboard создает inline клавиатуру подтверждения записи
func CreateConfirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Yes", CallbackData: prefixConfirm + "yes"},
				{Text: "No", CallbackData: prefixConfirm + "no"},
			},
		},
	}
}

// ParseCallback переводит данные кнопки в текст, который понимает диалог
func ParseCallback(data string) (string, bool) {
	switch {
	case data == dataBack:
		return "back", true
	case strings.HasPrefix(data, prefixSlot):
		h, err := strconv.Atoi(strings.TrimPrefix(data, prefixSlot))
		if err != nil || h < 0 || h > 23 {
			return "", false
		}
		return calendar.FormatHour(h), true
	case strings.HasPrefix(data, prefixConfirm):
		answer := strings.TrimPrefix(data, prefixConfirm)
		if answer != "yes" && answer != "no" {
			return "", false
		}
		return answer, true
	}
	return "", false
}
