// Package profiler reports throughput and memory statistics for loops that run a
// fixed unit of work per iteration, such as animation frames.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gear/internal/logger"

	"go.uber.org/zap"
)

// Stats is one reporting window.
type Stats struct {
	// Rate is iterations per second over the window.
	Rate float64

	// HeapMB is the live heap at the end of the window.
	HeapMB float64

	// AllocRateMB is heap allocation churn in MB per second.
	AllocRateMB float64

	GCCount   uint32
	LastPause time.Duration
	// MaxPause is the longest GC pause inside the window.
	MaxPause time.Duration

	// SysMB is the memory obtained from the OS.
	SysMB float64
}

// Profiler counts iterations and logs Stats once per interval.
type Profiler struct {
	label    string
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	count          int
	windowStart    time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler. The interval defaults to 1 second.
//
// Parameters:
//   - label: the name logged with each report
//   - options: variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the new profiler, with its first window starting now
func NewProfiler(label string, options ...ProfilerOption) *Profiler {
	p := &Profiler{
		label:    label,
		interval: time.Second,
		now:      time.Now,
		log:      logger.Named("profiler"),
	}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	return p
}

// Tick records one iteration. When the interval has elapsed it logs the window at debug
// level and starts a new one.
//
// Returns:
//   - Stats: the finished window, only meaningful when bool is true
//   - bool: true if a window was reported this tick
func (p *Profiler) Tick() (Stats, bool) {
	p.count++
	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval || elapsed <= 0 {
		return Stats{}, false
	}

	stats := p.sample(elapsed)
	p.log.Debug("profile",
		zap.String("label", p.label),
		zap.Float64("rate", stats.Rate),
		zap.Float64("heap_mb", stats.HeapMB),
		zap.Float64("alloc_rate_mb", stats.AllocRateMB),
		zap.Uint32("gc", stats.GCCount),
		zap.Duration("gc_last_pause", stats.LastPause),
		zap.Duration("gc_max_pause", stats.MaxPause),
		zap.Float64("sys_mb", stats.SysMB),
	)

	p.count = 0
	p.windowStart = now
	return stats, true
}

func (p *Profiler) sample(elapsed time.Duration) Stats {
	const mb = 1024 * 1024
	runtime.ReadMemStats(&p.memStats)
	secs := elapsed.Seconds()

	stats := Stats{
		Rate:        float64(p.count) / secs,
		HeapMB:      float64(p.memStats.Alloc) / mb,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / mb / secs,
		GCCount:     p.memStats.NumGC,
		SysMB:       float64(p.memStats.Sys) / mb,
	}

	// PauseNs is a ring of the last 256 pauses.
	gc := p.memStats.NumGC
	if gc > 0 {
		stats.LastPause = time.Duration(p.memStats.PauseNs[(gc+255)%256])
		from := p.lastGCCount
		if gc-from > 256 {
			from = gc - 256
		}
		for i := from; i < gc; i++ {
			stats.MaxPause = max(stats.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.lastGCCount = gc
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats
}

// ProfilerOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval is an option builder that sets the reporting interval.
//
// Parameters:
//   - d: the window length; non-positive values are ignored
//
// Returns:
//   - ProfilerOption: a function that applies the interval option to a profiler
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock is an option builder that replaces the wall clock, for simulated time.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger is an option builder that sets the logger.
func WithLogger(log *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log
		}
	}
}
