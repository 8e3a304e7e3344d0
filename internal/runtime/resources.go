package runtime

import (
	"os"
	"runtime"
	"runtime/metrics"
	"sync"
	"time"

	"github.com/sidewire/sidewire/internal/runtime/wire"
)

// resourceTracker samples coarse CPU/memory usage for automatic resource
// records.
type resourceTracker struct {
	mu             sync.Mutex
	samples        []metrics.Sample
	lastCPUSeconds float64
	lastSample     time.Time
	numCPU         float64
	pid            int
}

func newResourceTracker() *resourceTracker {
	return &resourceTracker{
		samples: []metrics.Sample{{Name: "/sched/cpu:seconds"}},
		numCPU:  float64(runtime.NumCPU()),
		pid:     os.Getpid(),
	}
}

// Snapshot reads current CPU and memory usage. CPU percent is computed from
// the delta since the previous snapshot, so the first call reports zero.
func (r *resourceTracker) Snapshot() wire.ResourceData {
	if r == nil {
		return wire.ResourceData{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) == 0 {
		r.samples = []metrics.Sample{{Name: "/sched/cpu:seconds"}}
	}

	metrics.Read(r.samples)
	sample := r.samples[0]
	haveCPU := sample.Value.Kind() == metrics.KindFloat64
	var cpuSeconds float64
	if haveCPU {
		cpuSeconds = sample.Value.Float64()
	}
	now := time.Now()

	var cpuPercent float64
	if haveCPU && !r.lastSample.IsZero() {
		deltaCPU := cpuSeconds - r.lastCPUSeconds
		deltaWall := now.Sub(r.lastSample).Seconds()
		if deltaWall > 0 && r.numCPU > 0 {
			cpuPercent = (deltaCPU / deltaWall) / r.numCPU * 100
		}
	}

	if haveCPU {
		r.lastCPUSeconds = cpuSeconds
	}
	r.lastSample = now

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return wire.ResourceData{
		CPUPercent: cpuPercent,
		MemoryMB:   float64(mem.Alloc) / (1024 * 1024),
		PID:        r.pid,
	}
}
