package gowait

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
)

// Monitor defines process monitor interface
// that returns the latest process stats snapshot.
type Monitor interface {
	Stats(context.Context) (Stats, error)
}

// Stats defines process stats snapshot
// used by bench harness to attribute CPU cost to waiting strategies.
type Stats struct {
	MemAlloc  uint64
	MemSystem uint64
	CPUUser   float64
	CPUSystem float64
	CPUUsage  float64
}

type monitor struct {
	lock    sync.Mutex
	memsync Runnable
	proc    *process.Process
	stats   Stats
}

// NewMonitor creates cached process monitor instance
// which refreshes the underlying stats snapshot
// at most once per provided cache duration.
func NewMonitor(cache time.Duration) *monitor {
	mnt := &monitor{}
	mnt.memsync = cached(cache, mnt.sync)
	return mnt
}

func (mnt *monitor) Stats(ctx context.Context) (Stats, error) {
	mnt.lock.Lock()
	defer mnt.lock.Unlock()
	if err := mnt.memsync(ctx); err != nil {
		return mnt.stats, err
	}
	return mnt.stats, nil
}

func (mnt *monitor) sync(ctx context.Context) error {
	var memstats runtime.MemStats
	runtime.ReadMemStats(&memstats)
	mnt.stats.MemAlloc = memstats.Alloc
	mnt.stats.MemSystem = memstats.Sys
	if mnt.proc == nil {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return err
		}
		mnt.proc = proc
	}
	times, err := mnt.proc.Times()
	if err != nil {
		return err
	}
	mnt.stats.CPUUser = times.User
	mnt.stats.CPUSystem = times.System
	if percents, err := cpu.Percent(10*time.Millisecond, true); err == nil {
		mnt.stats.CPUUsage = 0
		for _, p := range percents {
			mnt.stats.CPUUsage += p
		}
		mnt.stats.CPUUsage /= float64(len(percents))
	}
	return nil
}
