package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinic_booking_bot/internal/calendar"
	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// DefaultTimeout время ожидания извлекателя по умолчанию
const DefaultTimeout = 15 * time.Second

// Guard оборачивает извлекатель: ограничивает время вызова, перехватывает
// панику, превращает ошибки в пустой результат и отбрасывает значения,
// нарушающие контракт. Ошибку Guard не возвращает никогда.
type Guard struct {
	inner   Extractor
	timeout time.Duration
	logger  *logger.Logger
}

// NewGuard создает защищенный извлекатель
func NewGuard(inner Extractor, timeout time.Duration, log *logger.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{
		inner:   inner,
		timeout: timeout,
		logger:  log,
	}
}

type outcome struct {
	res Result
	err error
}

// Extract реализует Extractor; ошибка всегда nil
func (g *Guard) Extract(ctx context.Context, req Request) (Result, error) {
	return g.Resolve(ctx, req), nil
}

// Resolve возвращает очищенный результат извлечения
func (g *Guard) Resolve(ctx context.Context, req Request) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		res, err := g.inner.Extract(ctx, req)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: fmt.Errorf("extractor timed out: %w", ctx.Err())}
	}

	kind := string(req.Kind())
	elapsed := time.Since(start).Seconds()
	if out.err != nil {
		g.logger.Warn("Extraction failed, treating as undeterminable",
			logger.String("kind", kind),
			logger.Error(out.err),
		)
		metrics.RecordExtraction(kind, "error", elapsed)
		return Result{}
	}

	res := sanitize(req, out.res)
	status := "ok"
	if res == (Result{}) {
		status = "undeterminable"
	}
	metrics.RecordExtraction(kind, status, elapsed)
	return res
}

// sanitize оставляет только поля, относящиеся к запросу и прошедшие проверку
func sanitize(req Request, in Result) Result {
	var out Result

	switch req.(type) {
	case NameRequest, NameDateRequest:
		out.Name = cleanName(in.Name)
	}

	if ref, ok := reference(req); ok && in.Date != "" {
		out.Date = cleanDate(in.Date, ref)
	}

	if _, ok := req.(TimeRequest); ok && in.Hour != nil {
		if h := *in.Hour; h >= 0 && h <= 23 {
			out.Hour = Hour(h)
		}
	}

	if _, ok := req.(IntentRequest); ok {
		out.BookingIntent = in.BookingIntent
	}

	return out
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", "false", "null", "none", "unknown":
		return ""
	}
	return name
}

// cleanDate принимает только дату строго после опорной
func cleanDate(date string, ref time.Time) string {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return ""
	}
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if !d.After(refDay) {
		return ""
	}
	return d.Format(calendar.DateLayout)
}
