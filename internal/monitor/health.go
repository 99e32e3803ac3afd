package monitor

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fundwatch/internal/database"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/staging"
)

// Health is the process health snapshot served at /health.
type Health struct {
	Status        string        `json:"status"`
	Uptime        string        `json:"uptime"`
	DatabaseOK    bool          `json:"database_ok"`
	NavRows       int           `json:"nav_rows"`
	Staging       staging.Stats `json:"staging"`
	CPUPercent    float64       `json:"cpu_percent"`
	MemoryPercent float64       `json:"memory_percent"`
	DiskPercent   float64       `json:"disk_percent"`
}

// HealthChecker assembles the health snapshot.
type HealthChecker struct {
	db          *database.DB
	stagingRepo *staging.Repository
	navRepo     *nav.Repository
	started     time.Time
	log         zerolog.Logger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *database.DB, stagingRepo *staging.Repository, navRepo *nav.Repository, log zerolog.Logger) *HealthChecker {
	return &HealthChecker{
		db:          db,
		stagingRepo: stagingRepo,
		navRepo:     navRepo,
		started:     time.Now(),
		log:         log.With().Str("component", "health").Logger(),
	}
}

// Check returns the current snapshot. System probes are best effort;
// a failing probe zeroes its field rather than failing the check.
func (h *HealthChecker) Check() Health {
	out := Health{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}

	if err := h.db.Conn().Ping(); err != nil {
		out.Status = "degraded"
		h.log.Error().Err(err).Msg("Database ping failed")
	} else {
		out.DatabaseOK = true
	}

	if n, err := h.navRepo.Count(); err == nil {
		out.NavRows = n
	}
	if stats, err := h.stagingRepo.CountsByStatus(); err == nil {
		out.Staging = stats
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		out.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		out.DiskPercent = du.UsedPercent
	}

	return out
}
