package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/internal/storage/models"
	"clinic_booking_bot/pkg/errors"
)

// вторник 3 июня 2025
var today = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

func TestValidateDate(t *testing.T) {
	rules := calendar.DefaultRules()

	tests := []struct {
		name    string
		date    string
		wantErr *errors.BotError
	}{
		{"tomorrow", "2025-06-04", nil},
		{"saturday", "2025-06-07", nil},
		{"today is rejected", "2025-06-03", errors.ErrDateInPast},
		{"yesterday", "2025-06-02", errors.ErrDateInPast},
		{"sunday", "2025-06-08", errors.ErrClosedDay},
		{"garbage", "soon", errors.ErrInvalidDateFormat},
		{"wrong layout", "04/06/2025", errors.ErrInvalidDateFormat},
		{"impossible day", "2025-06-31", errors.ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDate(tt.date, today, rules)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidateHour(t *testing.T) {
	assert.NoError(t, ValidateHour(0))
	assert.NoError(t, ValidateHour(23))
	assert.True(t, errors.Is(ValidateHour(-1), errors.ErrInvalidHour))
	assert.True(t, errors.Is(ValidateHour(24), errors.ErrInvalidHour))

	h, err := ValidateHourString(" 9 ")
	require.NoError(t, err)
	assert.Equal(t, 9, h)

	_, err = ValidateHourString("9am")
	assert.True(t, errors.Is(err, errors.ErrInvalidHour))
	_, err = ValidateHourString("42")
	assert.True(t, errors.Is(err, errors.ErrInvalidHour))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Alice Tan"))

	for _, bad := range []string{"", "   ", "false", "FALSE", "null", strings.Repeat("a", 101)} {
		assert.True(t, errors.Is(ValidateName(bad), errors.ErrInvalidName), bad)
	}
}

func TestValidateBooking(t *testing.T) {
	rules := calendar.DefaultRules()

	tests := []struct {
		name    string
		booking models.Booking
		wantErr *errors.BotError
	}{
		{"valid weekday", models.NewBooking("Alice", "2025-06-04", 13, ""), nil},
		{"valid saturday", models.NewBooking("Alice", "2025-06-07", 11, ""), nil},
		{"lunch hour", models.NewBooking("Alice", "2025-06-04", 12, ""), errors.ErrSlotUnavailable},
		{"saturday afternoon", models.NewBooking("Alice", "2025-06-07", 14, ""), errors.ErrSlotUnavailable},
		{"sunday", models.NewBooking("Alice", "2025-06-08", 10, ""), errors.ErrClosedDay},
		{"past", models.NewBooking("Alice", "2025-06-01", 10, ""), errors.ErrDateInPast},
		{"no name", models.NewBooking("", "2025-06-04", 10, ""), errors.ErrInvalidName},
		{"bad hour", models.Booking{Name: "Alice", Date: "2025-06-04", Time: "x"}, errors.ErrInvalidHour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBooking(tt.booking, today, rules)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
