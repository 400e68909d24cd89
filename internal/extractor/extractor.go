// Package extractor превращает свободный текст пользователя в поля записи.
// Каждый запрос несет только нужные ему данные; незаполненное поле
// результата означает, что значение определить не удалось.
package extractor

import (
	"context"
	"time"
)

// Kind тип извлекаемого поля
type Kind string

const (
	KindName     Kind = "name"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindNameDate Kind = "name_date"
	KindIntent   Kind = "intent"
)

// Request запрос на извлечение. Реализации перечислены ниже.
type Request interface {
	Kind() Kind
	Text() string
	isRequest()
}

// NameRequest извлекает имя
type NameRequest struct {
	Utterance string
}

// DateRequest извлекает дату строго после Reference
type DateRequest struct {
	Utterance string
	Reference time.Time
}

// TimeRequest извлекает час приема
type TimeRequest struct {
	Utterance string
}

// NameDateRequest извлекает имя и дату за один вызов
type NameDateRequest struct {
	Utterance string
	Reference time.Time
}

// IntentRequest определяет, хочет ли пользователь записаться
type IntentRequest struct {
	Utterance string
}

func (NameRequest) Kind() Kind     { return KindName }
func (DateRequest) Kind() Kind     { return KindDate }
func (TimeRequest) Kind() Kind     { return KindTime }
func (NameDateRequest) Kind() Kind { return KindNameDate }
func (IntentRequest) Kind() Kind   { return KindIntent }

func (r NameRequest) Text() string     { return r.Utterance }
func (r DateRequest) Text() string     { return r.Utterance }
func (r TimeRequest) Text() string     { return r.Utterance }
func (r NameDateRequest) Text() string { return r.Utterance }
func (r IntentRequest) Text() string   { return r.Utterance }

func (NameRequest) isRequest()     {}
func (DateRequest) isRequest()     {}
func (TimeRequest) isRequest()     {}
func (NameDateRequest) isRequest() {}
func (IntentRequest) isRequest()   {}

// reference возвращает опорную дату запроса, если она есть
func reference(req Request) (time.Time, bool) {
	switch r := req.(type) {
	case DateRequest:
		return r.Reference, true
	case NameDateRequest:
		return r.Reference, true
	}
	return time.Time{}, false
}

// Result извлеченные поля. Пустое значение означает "не определено".
type Result struct {
	Name          string `json:"name,omitempty"`
	Date          string `json:"date,omitempty"`
	Hour          *int   `json:"hour,omitempty"`
	BookingIntent bool   `json:"booking_intent,omitempty"`
}

func (r Result) HasName() bool { return r.Name != "" }
func (r Result) HasDate() bool { return r.Date != "" }
func (r Result) HasHour() bool { return r.Hour != nil }

// HourValue возвращает час результата
func (r Result) HourValue() int {
	if r.Hour == nil {
		return -1
	}
	return *r.Hour
}

// Hour возвращает указатель на копию h
func Hour(h int) *int {
	return &h
}

// Extractor извлекает поля из реплики
type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}

// Func адаптер обычной функции к Extractor
type Func func(ctx context.Context, req Request) (Result, error)

// Extract вызывает f
func (f Func) Extract(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
