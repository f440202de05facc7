package raytracer

import (
	"sync/atomic"
	"time"
)

// RenderStats summarizes the work done by a tracer.
type RenderStats struct {
	Rays        int64         // TraceRay calls, primary and secondary
	PrimaryRays int64         // Rays spawned by RayGeneration
	Hits        int64         // Traces that reached a triangle
	Passes      int           // Completed RayGeneration calls
	Elapsed     time.Duration // Time spent in RayGeneration
}

// RaysPerSecond returns the trace throughput over the time spent rendering.
func (s RenderStats) RaysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Rays) / s.Elapsed.Seconds()
}

// counters are updated concurrently by ray generation workers.
type counters struct {
	rays        atomic.Int64
	primaryRays atomic.Int64
	hits        atomic.Int64
}
