package service

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/model"
)

const (
	defaultDays = 7
	maxDays     = 90
)

// StatsService serves the dashboard aggregates.
type StatsService struct {
	stats StatsStore
	now   func() time.Time
}

func NewStatsService(stats StatsStore) *StatsService {
	return &StatsService{stats: stats, now: time.Now}
}

// WithClock overrides the clock used to compute day boundaries.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Overview counts users and events overall and since midnight UTC.
func (s *StatsService) Overview(ctx context.Context, p model.Principal) (*model.Overview, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	o, err := s.stats.Overview(ctx, s.today())
	if err != nil {
		return nil, apperr.Storage("overview", err)
	}
	return o, nil
}

// DailyUsers counts sign-ups per day over the last days days.
func (s *StatsService) DailyUsers(ctx context.Context, p model.Principal, days int) ([]model.DailyCount, error) {
	since, err := s.window(p, days)
	if err != nil {
		return nil, err
	}
	out, err := s.stats.DailyUsers(ctx, since)
	if err != nil {
		return nil, apperr.Storage("daily users", err)
	}
	return out, nil
}

// DailyEvents counts created events per day and status.
func (s *StatsService) DailyEvents(ctx context.Context, p model.Principal, days int) ([]model.DailyCount, error) {
	since, err := s.window(p, days)
	if err != nil {
		return nil, err
	}
	out, err := s.stats.DailyEvents(ctx, since)
	if err != nil {
		return nil, apperr.Storage("daily events", err)
	}
	return out, nil
}

// window validates days (0 means the default) and returns the first
// instant of the window.
func (s *StatsService) window(p model.Principal, days int) (time.Time, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return time.Time{}, err
	}
	if days == 0 {
		days = defaultDays
	}
	if days < 1 || days > maxDays {
		return time.Time{}, apperr.Validation("days must be between 1 and %d", maxDays)
	}
	return s.today().AddDate(0, 0, -(days - 1)), nil
}

func (s *StatsService) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

// HealthCheck probes one dependency.
type HealthCheck struct {
	Kind  string
	Check func(ctx context.Context) error
}

// ComponentHealth is the probe result for one dependency.
type ComponentHealth struct {
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ServerHealth describes the running process.
type ServerHealth struct {
	Status     string  `json:"status"`
	Uptime     float64 `json:"uptime"`
	Goroutines int     `json:"goroutines"`
	GoVersion  string  `json:"goVersion"`
	Memory     struct {
		Alloc     uint64 `json:"alloc"`
		Sys       uint64 `json:"sys"`
		HeapInuse uint64 `json:"heapInuse"`
		NumGC     uint32 `json:"numGC"`
	} `json:"memory"`
}

// SystemReport is the body of the system health endpoint.
type SystemReport struct {
	Components map[string]ComponentHealth `json:"components"`
	Server     ServerHealth               `json:"server"`
}

// SystemService reports dependency and process health.
type SystemService struct {
	checks  map[string]HealthCheck
	started time.Time
	timeout time.Duration
	log     *log.Logger
}

// NewSystemService builds the service; started is the process start time.
func NewSystemService(checks map[string]HealthCheck, started time.Time, logger *log.Logger) *SystemService {
	if logger == nil {
		logger = log.New("system")
	}
	return &SystemService{checks: checks, started: started, timeout: 2 * time.Second, log: logger}
}

// Health runs every check with a short timeout. A failing dependency is
// reported as unreachable in the body and its cause is only logged; the
// call itself only fails on authorization.
func (s *SystemService) Health(ctx context.Context, p model.Principal) (*SystemReport, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	r := &SystemReport{Components: map[string]ComponentHealth{}}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hc := s.checks[name]
		ch := ComponentHealth{Status: "healthy", Type: hc.Kind}
		if hc.Check == nil {
			ch.Status = "disabled"
		} else {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			if err := hc.Check(cctx); err != nil {
				s.log.Errorj(log.JSON{"event": "health_check_failed", "component": name, "error": err.Error()})
				ch.Status, ch.Error = "unhealthy", "unreachable"
			}
			cancel()
		}
		r.Components[name] = ch
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	r.Server.Status = "healthy"
	r.Server.Uptime = time.Since(s.started).Seconds()
	r.Server.Goroutines = runtime.NumGoroutine()
	r.Server.GoVersion = runtime.Version()
	r.Server.Memory.Alloc = ms.Alloc
	r.Server.Memory.Sys = ms.Sys
	r.Server.Memory.HeapInuse = ms.HeapInuse
	r.Server.Memory.NumGC = ms.NumGC
	return r, nil
}
