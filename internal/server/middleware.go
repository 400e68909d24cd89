package server

import (
	"net/http"
	"time"

	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

// loggingMiddleware логирует HTTP запросы
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		s.logger.Debug("HTTP request completed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status_code", wrapped.statusCode),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

// recoveryMiddleware не дает панике в обработчике уронить сервер
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic in HTTP handler",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec),
				)
				metrics.RecordError("http", "panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware добавляет заголовки безопасности
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// responseWriterWrapper оборачивает ResponseWriter для захвата status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает status code
func (rw *responseWriterWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
