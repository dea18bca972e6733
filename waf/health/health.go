package health

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"topcompras/waf/respond"
)

var startTime = time.Now()

// HealthStatus represents the current health status of the service
type HealthStatus struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	Uptime        string                 `json:"uptime"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Timestamp     string                 `json:"timestamp"`
	System        SystemInfo             `json:"system"`
	Store         string                 `json:"store,omitempty"`
	Guard         map[string]interface{} `json:"guard,omitempty"`
}

// SystemInfo contains system-level information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"goroutines"`
	MemoryMB     uint64 `json:"memory_mb"`
	NumCPU       int    `json:"num_cpu"`
}

// Options wires optional probes into the health report
type Options struct {
	Version string
	// Guard returns the abuse guard counters
	Guard func() map[string]interface{}
	// Store pings the storefront blob store; a failure reports "degraded"
	Store func(*http.Request) error
}

// Handler returns the health check HTTP handler
func Handler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respond.MethodNotAllowed(w)
			return
		}

		uptime := time.Since(startTime)

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		status := HealthStatus{
			Status:        "healthy",
			Version:       opts.Version,
			Uptime:        formatUptime(uptime),
			UptimeSeconds: int64(uptime.Seconds()),
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			System: SystemInfo{
				GoVersion:    runtime.Version(),
				NumGoroutine: runtime.NumGoroutine(),
				MemoryMB:     m.Alloc / 1024 / 1024,
				NumCPU:       runtime.NumCPU(),
			},
		}
		if opts.Guard != nil {
			status.Guard = opts.Guard()
		}

		code := http.StatusOK
		if opts.Store != nil {
			status.Store = "ok"
			if err := opts.Store(r); err != nil {
				status.Status = "degraded"
				status.Store = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		respond.JSON(w, code, status)
	}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return formatTime(days, "day") + " " + formatTime(hours, "hour")
	}
	if hours > 0 {
		return formatTime(hours, "hour") + " " + formatTime(minutes, "minute")
	}
	if minutes > 0 {
		return formatTime(minutes, "minute") + " " + formatTime(seconds, "second")
	}
	return formatTime(seconds, "second")
}

func formatTime(value int, unit string) string {
	if value == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(value) + " " + unit + "s"
}
