package service

import (
	"context"
	"runtime"
	"sync"
	"time"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

// Pinger is anything that can answer a liveness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthCheck is a dependency probe. A probe slower than Slow is reported
// degraded; a failing probe is critical unless Optional.
type HealthCheck struct {
	Name     string
	Pinger   Pinger
	Slow     time.Duration
	Optional bool
}

type CheckResult struct {
	Status         string `json:"status"`
	ResponseTimeMs int64  `json:"responseTime"`
	Error          string `json:"error,omitempty"`
}

type HealthReport struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
	Memory    MemoryStats            `json:"memory"`
}

// MemoryStats is informational and does not affect the status.
type MemoryStats struct {
	HeapInuseMB uint64 `json:"heapInuseMB"`
	HeapSysMB   uint64 `json:"heapSysMB"`
	Goroutines  int    `json:"goroutines"`
}

type HealthService struct {
	checks  []HealthCheck
	version string
	started time.Time
	timeout time.Duration
	now     func() time.Time
}

func NewHealthService(version string, checks ...HealthCheck) *HealthService {
	return &HealthService{
		checks:  checks,
		version: version,
		started: time.Now(),
		timeout: 3 * time.Second,
		now:     time.Now,
	}
}

// Check runs every probe in parallel. Any critical probe makes the report
// critical, any other unhealthy one makes it degraded.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make(map[string]CheckResult, len(s.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range s.checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			r := runCheck(ctx, c)
			mu.Lock()
			results[c.Name] = r
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	status := HealthHealthy
	for _, r := range results {
		switch r.Status {
		case HealthCritical:
			status = HealthCritical
		case HealthDegraded:
			if status == HealthHealthy {
				status = HealthDegraded
			}
		}
	}

	now := s.now()
	return HealthReport{
		Status:    status,
		Timestamp: now.UTC(),
		Version:   s.version,
		Uptime:    now.Sub(s.started).Seconds(),
		Checks:    results,
		Memory:    readMemory(),
	}
}

func runCheck(ctx context.Context, c HealthCheck) CheckResult {
	start := time.Now()
	err := c.Pinger.PingContext(ctx)
	elapsed := time.Since(start)

	r := CheckResult{ResponseTimeMs: elapsed.Milliseconds()}
	switch {
	case err != nil:
		r.Status = HealthCritical
		if c.Optional {
			r.Status = HealthDegraded
		}
		r.Error = err.Error()
	case c.Slow > 0 && elapsed >= c.Slow:
		r.Status = HealthDegraded
	default:
		r.Status = HealthHealthy
	}
	return r
}

func readMemory() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapInuseMB: m.HeapInuse / 1024 / 1024,
		HeapSysMB:   m.HeapSys / 1024 / 1024,
		Goroutines:  runtime.NumGoroutine(),
	}
}
