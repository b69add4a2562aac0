package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-relay/internal/gateway"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveRequests    int64  `json:"active_requests"`
	ActiveConnections int    `json:"active_connections"`
}

type Stats struct {
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type ConnectionsResponse struct {
	Total       int                      `json:"total"`
	Connections []gateway.ConnectionInfo `json:"connections"`
}

// Check is a named readiness probe. A failing critical check makes the
// service unhealthy; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Run      func(context.Context) error
}

type Handler struct {
	redis     *redis.Client
	registry  *gateway.Registry
	checks    []Check
	version   string
	startTime time.Time

	totalRequests  uint64
	activeRequests int64
}

func NewHandler(redis *redis.Client, registry *gateway.Registry, checks []Check, version string) *Handler {
	return &Handler{
		redis:     redis,
		registry:  registry,
		checks:    checks,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/health/connections", h.Connections)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementActive() {
	atomic.AddInt64(&h.activeRequests, 1)
}

func (h *Handler) DecrementActive() {
	atomic.AddInt64(&h.activeRequests, -1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components, overallStatus := h.Evaluate(ctx)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveRequests:    atomic.LoadInt64(&h.activeRequests),
				ActiveConnections: h.registry.Count(),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) Connections(c echo.Context) error {
	conns := h.registry.List()
	return c.JSON(http.StatusOK, ConnectionsResponse{
		Total:       len(conns),
		Connections: conns,
	})
}

// Evaluate runs every probe concurrently and folds the results into an
// overall status.
func (h *Handler) Evaluate(ctx context.Context) (map[string]ComponentStatus, Status) {
	components := make(map[string]ComponentStatus)
	critical := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := h.checks
	if h.redis != nil {
		checks = append([]Check{{Name: "redis", Critical: true, Run: h.pingRedis}}, checks...)
	}

	wg.Add(len(checks))
	for _, check := range checks {
		critical[check.Name] = check.Critical
		go func(check Check) {
			defer wg.Done()
			status := runCheck(ctx, check)
			mu.Lock()
			components[check.Name] = status
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	return components, computeOverallStatus(components, critical)
}

func (h *Handler) pingRedis(ctx context.Context) error {
	return h.redis.Ping(ctx).Err()
}

func runCheck(ctx context.Context, check Check) ComponentStatus {
	start := time.Now()
	if err := check.Run(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}
	}
	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func computeOverallStatus(components map[string]ComponentStatus, critical map[string]bool) Status {
	hasUnhealthy := false
	for name, status := range components {
		if status.Status != StatusUnhealthy {
			continue
		}
		if critical[name] {
			return StatusUnhealthy
		}
		hasUnhealthy = true
	}

	if hasUnhealthy {
		return StatusDegraded
	}
	return StatusHealthy
}
