package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/nebula-ml/internal/service"
	"github.com/ajitpratap0/nebula-ml/pkg/cache"
)

// Health is the body of GET /healthz
type Health struct {
	Status       string      `json:"status"`
	Uptime       string      `json:"uptime"`
	CachedModels []string    `json:"cached_models"`
	Cache        cache.Stats `json:"cache"`
	RSSBytes     uint64      `json:"rss_bytes,omitempty"`
	Threads      int32       `json:"threads,omitempty"`
}

type healthProbe struct {
	reg     *service.Registry
	proc    *process.Process
	started time.Time
}

func newHealthProbe(reg *service.Registry) *healthProbe {
	// process stats are best effort; a nil process leaves them zero
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &healthProbe{reg: reg, proc: proc, started: time.Now()}
}

func (h *healthProbe) snapshot() Health {
	out := Health{
		Status:       "ok",
		Uptime:       time.Since(h.started).Truncate(time.Second).String(),
		CachedModels: h.reg.CachedModels(),
		Cache:        h.reg.CacheStats(),
	}
	if h.proc != nil {
		if mem, err := h.proc.MemoryInfo(); err == nil {
			out.RSSBytes = mem.RSS
		}
		if n, err := h.proc.NumThreads(); err == nil {
			out.Threads = n
		}
	}
	return out
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, s.health.snapshot())
}
