package dialogue

import (
	"fmt"
	"strings"
	"time"

	"clinic_booking_bot/internal/calendar"
)

const (
	msgAskNameDate      = "Please tell me your name and preferred date."
	msgAskName          = "Sorry, I didn't get your name. Could you repeat it?"
	msgAskDate          = "Can I have your preferred date for the appointment."
	msgEmptyDate        = "Please provide a valid date."
	msgUnknownDate      = "Sorry, I didn't get the date. Please try again."
	msgPastDate         = "Sorry, the date you provided is in the past. Please choose a future date."
	msgAskTime          = `Please choose a time from the available slots or type "back" to choose another date.`
	msgEmptyTime        = "Please provide a valid time."
	msgUnknownTime      = "Sorry, I didn't get the time. Please try again."
	msgTimeTaken        = "Sorry, the time you selected is not available. Please choose another time slot."
	msgAskRemarks       = "Do you have any remarks or special requests that you would like us to know?"
	msgAskConfirm       = "Please confirm your booking (yes/no)."
	msgBooked           = "Your booking has been successfully made."
	msgCancelled        = "Booking cancelled."
	msgSlotJustTaken    = "Error making booking: the selected slot has just been taken by someone else."
	msgNoLongerValid    = "Error making booking: the selected slot is no longer valid."
	msgBookingError     = "Error making booking. Please try again later."
	msgNotPersisted     = "Warning: your booking is held by the assistant but could not be written to the clinic records. Please contact the clinic to confirm it."
	msgBookingRequested = "It seems like you want to book an appointment. Let me help you with that."
)

func closedDayMessage(rules calendar.WeeklyRules) string {
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if rules.IsClosed(d) {
			days = append(days, d.String()+"s")
		}
	}
	if len(days) == 0 {
		return "Sorry, we are closed on that day."
	}
	return fmt.Sprintf("Sorry, we are closed on %s.", strings.Join(days, " and "))
}

func noSlotsMessage(date string) string {
	return fmt.Sprintf("Sorry, there are no available slots for %s. Please choose another date.", date)
}

func gotItMessage(name, date string, hour int) string {
	return fmt.Sprintf("Got it! %s, Your appointment will be on %s at %s.", name, date, calendar.FormatHour(hour))
}

// Summary формирует сводку записи перед подтверждением
func Summary(name, date string, hour int, remarks string) string {
	var b strings.Builder
	b.WriteString("Booking Summary:\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Time: %s\n", calendar.FormatHour(hour))
	fmt.Fprintf(&b, "Remarks: %s", remarks)
	return b.String()
}

// SlotTable выводит свободные часы в две колонки в 12-часовом формате
func SlotTable(date string, slots []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the available time slots for %s:", date)
	for i := 0; i < len(slots); i += 2 {
		right := ""
		if i+1 < len(slots) {
			right = calendar.FormatHour(slots[i+1])
		}
		fmt.Fprintf(&b, "\n%-15s | %-15s", calendar.FormatHour(slots[i]), right)
	}
	return b.String()
}

// BookingRequested сообщение перед началом записи
func BookingRequested() string {
	return msgBookingRequested
}
