package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clinic_booking_bot/pkg/logger"
	"clinic_booking_bot/pkg/metrics"
)

const (
	cleanupInterval = 5 * time.Minute
	idleTimeout     = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов по ключу (IP адрес)
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	logger   *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter создает limiter на perMinute запросов в минуту с таким же
// запасом для всплесков
func NewRateLimiter(perMinute int, log *logger.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}

	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		logger:   log,
		done:     make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = time.Now()
	rl.mu.Unlock()

	return e.limiter.Allow()
}

// Len возвращает количество отслеживаемых ключей
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-idleTimeout))
		case <-rl.done:
			return
		}
	}
}

// cleanup удаляет limiters, которые не использовались с cutoff
func (rl *RateLimiter) cleanup(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var cleaned int
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		rl.logger.Debug("Cleaned up rate limiters",
			logger.Int("cleaned_count", cleaned),
			logger.Int("remaining_count", len(rl.limiters)),
		)
	}
}

// Close останавливает cleanup routine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// HTTPRateLimitMiddleware создает HTTP middleware для rate limiting по IP
func HTTPRateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			if !limiter.Allow(key) {
				limiter.logger.Warn("Rate limit exceeded",
					logger.String("ip", key),
					logger.String("path", r.URL.Path),
				)
				metrics.RecordError("http", "rate_limited")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP извлекает адрес клиента с учетом прокси
func ClientIP(r *http.Request) string {
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",
		"X-Real-IP", // nginx
	}

	for _, header := range headers {
		ip := r.Header.Get(header)
		if ip == "" {
			continue
		}
		// X-Forwarded-For может содержать несколько IP через запятую
		if i := strings.Index(ip, ","); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
