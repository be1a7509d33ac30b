package crawl

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// MemoryStats summarizes one memory-monitored crawl run.
type MemoryStats struct {
	StartMB  float64
	EndMB    float64
	PeakMB   float64
	AvgMB    float64
	Elapsed  time.Duration
	Samples  int
}

// memorySupervisor samples this process's RSS roughly once a second and
// adjusts a shared worker-count target: dropping it by one (floor 1) the
// instant RSS exceeds thresholdMB, and allowing it back up to max once RSS
// has stayed under threshold for recoverSamples consecutive samples.
type memorySupervisor struct {
	proc      *process.Process
	target    *int32 // current allowed worker count
	max       int32
	thresholdMB float64

	sumMB   float64
	peakMB  float64
	samples int
	startMB float64
}

func newMemorySupervisor(max int, thresholdMB float64) (*memorySupervisor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	target := int32(max)
	return &memorySupervisor{proc: p, target: &target, max: int32(max), thresholdMB: thresholdMB}, nil
}

// Run samples RSS every ~1s until ctx is cancelled, then returns the
// accumulated stats. Intended to be run in its own goroutine.
func (m *memorySupervisor) Run(ctx context.Context) MemoryStats {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()
	healthyStreak := 0
	const recoverSamples = 3

	sample := func() {
		info, err := m.proc.MemoryInfo()
		if err != nil {
			return
		}
		mb := float64(info.RSS) / (1024 * 1024)
		if m.samples == 0 {
			m.startMB = mb
		}
		m.samples++
		m.sumMB += mb
		if mb > m.peakMB {
			m.peakMB = mb
		}

		if mb > m.thresholdMB {
			healthyStreak = 0
			m.lowerTarget()
		} else {
			healthyStreak++
			if healthyStreak >= recoverSamples {
				healthyStreak = 0
				m.raiseTarget()
			}
		}
	}

	sample()
	for {
		select {
		case <-ctx.Done():
			sample()
			avg := m.startMB
			if m.samples > 0 {
				avg = m.sumMB / float64(m.samples)
			}
			endMB := m.startMB
			if info, err := m.proc.MemoryInfo(); err == nil {
				endMB = float64(info.RSS) / (1024 * 1024)
			}
			return MemoryStats{
				StartMB: m.startMB,
				EndMB:   endMB,
				PeakMB:  m.peakMB,
				AvgMB:   avg,
				Elapsed: time.Since(start),
				Samples: m.samples,
			}
		case <-ticker.C:
			sample()
		}
	}
}

// Workers returns the currently allowed worker count for callers that want
// to rate their own concurrency against it (e.g. resizing an errgroup
// limit between frontier levels).
func (m *memorySupervisor) Workers() int {
	return int(atomic.LoadInt32(m.target))
}

func (m *memorySupervisor) lowerTarget() {
	for {
		cur := atomic.LoadInt32(m.target)
		if cur <= 1 {
			return
		}
		if atomic.CompareAndSwapInt32(m.target, cur, cur-1) {
			return
		}
	}
}

func (m *memorySupervisor) raiseTarget() {
	for {
		cur := atomic.LoadInt32(m.target)
		if cur >= m.max {
			return
		}
		if atomic.CompareAndSwapInt32(m.target, cur, cur+1) {
			return
		}
	}
}

// CrawlWithMemoryMonitoring runs the Recursive strategy while a
// memorySupervisor dynamically throttles opts.MaxConcurrent in response to
// RSS pressure, returning both the crawled documents and the run's memory
// statistics.
func (d *Dispatcher) CrawlWithMemoryMonitoring(ctx context.Context, rawURL string, opts Opts, thresholdMB float64) ([]Document, MemoryStats, error) {
	opts = opts.withDefaults()
	sup, err := newMemorySupervisor(opts.MaxConcurrent, thresholdMB)
	if err != nil {
		return nil, MemoryStats{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	statsCh := make(chan MemoryStats, 1)
	go func() { statsCh <- sup.Run(runCtx) }()

	docs, err := d.crawlRecursiveWorkers(ctx, rawURL, opts, sup.Workers)

	cancel()
	stats := <-statsCh
	return docs, stats, err
}
