package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Booking представляет подтвержденную запись на прием.
// Time хранится так же, как в журнале: час строкой ("10").
type Booking struct {
	Name    string `json:"name" db:"name"`
	Date    string `json:"date" db:"date"`
	Time    string `json:"time" db:"time"`
	Remarks string `json:"remarks,omitempty" db:"remarks"`
}

// NewBooking создает запись с часом в формате журнала
func NewBooking(name, date string, hour int, remarks string) Booking {
	return Booking{
		Name:    name,
		Date:    date,
		Time:    strconv.Itoa(hour),
		Remarks: remarks,
	}
}

// Hour разбирает час записи
func (b Booking) Hour() (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(b.Time))
	if err != nil {
		// в старых файлах встречается "10.0"
		f, ferr := strconv.ParseFloat(strings.TrimSpace(b.Time), 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("invalid booking hour %q: %w", b.Time, err)
		}
		h = int(f)
	}
	return h, nil
}

// SlotKey возвращает ключ занятого слота (дата и час)
func (b Booking) SlotKey() string {
	if h, err := b.Hour(); err == nil {
		return fmt.Sprintf("%s#%d", b.Date, h)
	}
	return b.Date + "#" + b.Time
}
