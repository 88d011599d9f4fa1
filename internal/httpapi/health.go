package httpapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// health reports liveness plus coarse process diagnostics. Diagnostics are
// best-effort: a failed probe drops the field rather than failing the check.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":     "healthy",
		"service":    "api-gateway",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			payload["memoryRssBytes"] = memInfo.RSS
		}
		if cpuPercent, err := proc.CPUPercent(); err == nil {
			payload["cpuPercent"] = cpuPercent
		}
	}

	writeJSON(w, http.StatusOK, payload)
}
