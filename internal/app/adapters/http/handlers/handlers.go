package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"

	"ircheck/internal/app/infrastructure/config"
	"ircheck/pkg/logger"
)

type Handlers struct {
	log     logger.Logger
	manager *config.Manager
	started time.Time
}

func New(log logger.Logger, manager *config.Manager) *Handlers {
	return &Handlers{
		log:     log,
		manager: manager,
		started: time.Now(),
	}
}

// StatusHandler reports process health: uptime, CPU load and memory use.
func (h *Handlers) StatusHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent := 0.0
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		cpuPercent = percent[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime":      time.Since(h.started).Truncate(time.Second).String(),
		"cpu_percent": cpuPercent,
		"mem_sys_mb":  m.Sys / 1024 / 1024,
		"goroutines":  runtime.NumGoroutine(),
	})
}
