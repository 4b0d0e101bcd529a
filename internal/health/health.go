package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is anything that can report reachability, such as *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db      Pinger
	redis   redis.UniversalClient
	started time.Time
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Redis    *ComponentHealth `json:"redis,omitempty"`
	System   *SystemStats     `json:"system,omitempty"`
	Pool     *PoolStats       `json:"pool,omitempty"`
	Uptime   string           `json:"uptime,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type SystemStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`
}

type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// NewHealthChecker builds a checker; redis may be nil when buckets are in-process
func NewHealthChecker(db Pinger, rdb redis.UniversalClient) *HealthChecker {
	return &HealthChecker{db: db, redis: rdb, started: time.Now()}
}

// CheckBasic pings the dependencies. Redis being down degrades rather than
// fails the service since rate limiting falls open.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:   "healthy",
		Database: probe(ctx, h.db.Ping),
	}
	if status.Database.Status != "healthy" {
		status.Status = "unhealthy"
	}

	if h.redis != nil {
		r := probe(ctx, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
		status.Redis = &r
		if r.Status != "healthy" && status.Status == "healthy" {
			status.Status = "degraded"
		}
	}
	return status
}

// CheckDetailed adds host and pool statistics for the operator dashboard
func (h *HealthChecker) CheckDetailed(ctx context.Context) HealthStatus {
	status := h.CheckBasic(ctx)
	status.Uptime = time.Since(h.started).Round(time.Second).String()

	sys := &SystemStats{Goroutines: runtime.NumGoroutine()}
	if memStats, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sys.MemoryPercent = memStats.UsedPercent
		sys.MemoryUsed = formatBytes(memStats.Used)
		sys.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.UsageWithContext(ctx, "/"); err == nil {
		sys.DiskPercent = diskStats.UsedPercent
		sys.DiskUsed = formatBytes(diskStats.Used)
		sys.DiskTotal = formatBytes(diskStats.Total)
	}
	status.System = sys

	if pool, ok := h.db.(*pgxpool.Pool); ok {
		st := pool.Stat()
		status.Pool = &PoolStats{
			TotalConns:    st.TotalConns(),
			IdleConns:     st.IdleConns(),
			AcquiredConns: st.AcquiredConns(),
			MaxConns:      st.MaxConns(),
		}
	}
	return status
}

func probe(ctx context.Context, ping func(context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}
