package middleware

import (
	"net/http"
	"strconv"
	"time"

	"clinic_booking_bot/pkg/metrics"
)

// knownPaths ограничивает кардинальность метки endpoint
var knownPaths = map[string]bool{
	"/webhook": true,
	"/health":  true,
	"/metrics": true,
}

// PrometheusMiddleware добавляет метрики Prometheus для HTTP запросов
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrappedWriter := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrappedWriter, r)

		endpoint := r.URL.Path
		if !knownPaths[endpoint] {
			endpoint = "other"
		}

		metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(wrappedWriter.statusCode))
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// responseWriter оборачивает http.ResponseWriter для захвата статус-кода
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader захватывает статус-код ответа
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
