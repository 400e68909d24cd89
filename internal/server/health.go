package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"clinic_booking_bot/pkg/metrics"
)

const (
	statusHealthy   = "healthy"
	statusWarning   = "warning"
	statusUnhealthy = "unhealthy"

	pingTimeout = 5 * time.Second
)

// Pinger компонент, который умеет проверять свою доступность
type Pinger interface {
	Ping(ctx context.Context) error
}

// sizer реализуют журнал записей и хранилище сессий в памяти
type sizer interface {
	Len() int
}

// ComponentHealth результат проверки одного компонента
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Records *int   `json:"records,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse ответ /health
type HealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Checks     map[string]string          `json:"checks"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Runtime    map[string]interface{}     `json:"runtime,omitempty"`
}

// runtimeLimit порог для показателя процесса
type runtimeLimit struct {
	name     string
	value    func(m *runtime.MemStats) uint64
	warn     uint64
	critical uint64
	gauge    func(v float64)
}

var runtimeLimits = []runtimeLimit{
	{
		name:     "memory",
		value:    func(m *runtime.MemStats) uint64 { return m.Alloc },
		warn:     500 << 20,
		critical: 1 << 30,
		gauge:    metrics.MemoryUsage.Set,
	},
	{
		name:     "goroutines",
		value:    func(*runtime.MemStats) uint64 { return uint64(runtime.NumGoroutine()) },
		warn:     1000,
		critical: 10000,
		gauge:    metrics.GoroutinesCount.Set,
	},
}

// HealthChecker проверяет журнал, хранилище сессий и сам процесс
type HealthChecker struct {
	components map[string]Pinger
	names      []string
	startTime  time.Time
	version    string
}

// NewHealthChecker создает health checker. components: имя -> компонент
// (журнал записей, хранилище сессий)
func NewHealthChecker(version string, components map[string]Pinger) *HealthChecker {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	return &HealthChecker{
		components: components,
		names:      names,
		startTime:  time.Now(),
		version:    version,
	}
}

// HealthHandler обрабатывает GET /health
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:     statusHealthy,
		Timestamp:  time.Now().Format(time.RFC3339),
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Checks:     make(map[string]string, len(h.names)+len(runtimeLimits)),
		Components: make(map[string]ComponentHealth, len(h.names)),
	}

	for _, name := range h.names {
		c := h.checkComponent(ctx, name)
		resp.Components[name] = c
		if c.Status == statusUnhealthy {
			resp.Checks[name] = statusUnhealthy + ": " + c.Error
			resp.Status = statusUnhealthy
			metrics.RecordError("health", name)
			continue
		}
		resp.Checks[name] = statusHealthy
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	for _, limit := range runtimeLimits {
		status := limit.check(&m)
		resp.Checks[limit.name] = status
		if status != statusHealthy && resp.Status == statusHealthy {
			resp.Status = statusWarning
		}
	}
	resp.Runtime = map[string]interface{}{
		"alloc_bytes": m.Alloc,
		"sys_bytes":   m.Sys,
		"num_gc":      m.NumGC,
		"goroutines":  runtime.NumGoroutine(),
		"go_version":  runtime.Version(),
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == statusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *HealthChecker) checkComponent(ctx context.Context, name string) ComponentHealth {
	component := h.components[name]

	start := time.Now()
	err := component.Ping(ctx)
	c := ComponentHealth{
		Status:  statusHealthy,
		Latency: time.Since(start).String(),
	}
	if err != nil {
		c.Status = statusUnhealthy
		c.Error = err.Error()
		return c
	}

	if s, ok := component.(sizer); ok {
		n := s.Len()
		c.Records = &n
	}
	return c
}

func (l runtimeLimit) check(m *runtime.MemStats) string {
	v := l.value(m)
	l.gauge(float64(v))

	switch {
	case v > l.critical:
		return fmt.Sprintf("critical: %s at %d", l.name, v)
	case v > l.warn:
		return fmt.Sprintf("warning: %s at %d", l.name, v)
	}
	return statusHealthy
}
