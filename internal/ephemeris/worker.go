package ephemeris

import (
	"sync"
	"time"

	"github.com/star/darksky/internal/transform"
)

// chunkSize is the number of grid instants handed to a worker per job.
// A month at 15-minute spacing is ~3000 instants.
const chunkSize = 256

// evalJob is a contiguous slice of grid indices for one worker.
type evalJob struct {
	lo, hi int
}

// WorkerPool fans grid evaluation out over a fixed number of goroutines.
// Every batch call joins its workers before returning; the pool holds no
// goroutines between calls.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a worker pool with the given number of workers.
// Values below 1 are treated as 1, which evaluates sequentially.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Workers reports the configured pool size.
func (wp *WorkerPool) Workers() int { return wp.workers }

// run calls fn for every index in [0, n). Each index is visited exactly once
// and fn must only write to slots it owns.
func (wp *WorkerPool) run(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if wp.workers == 1 || n <= chunkSize {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	jobs := make(chan evalJob, wp.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < wp.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				for i := job.lo; i < job.hi; i++ {
					fn(i)
				}
			}
		}()
	}

	for lo := 0; lo < n; lo += chunkSize {
		jobs <- evalJob{lo: lo, hi: min(lo+chunkSize, n)}
	}
	close(jobs)

	wg.Wait()
}

// SkyBatch evaluates sun altitude, moon altitude and moon illumination for
// every instant. Results are in input order.
func (wp *WorkerPool) SkyBatch(obs transform.ObserverPosition, times []time.Time) []Sample {
	out := make([]Sample, len(times))
	wp.run(len(times), func(i int) {
		out[i] = SkyAt(obs, times[i])
	})
	return out
}

// AltitudeBatch evaluates a fixed target's altitude for every instant.
// Results are in input order.
func (wp *WorkerPool) AltitudeBatch(obs transform.ObserverPosition, target Target, times []time.Time) []float64 {
	out := make([]float64, len(times))
	wp.run(len(times), func(i int) {
		out[i] = TargetAltitude(obs, target, transform.JulianDate(times[i]))
	})
	return out
}

// SkyAt evaluates the sky for a single instant.
func SkyAt(obs transform.ObserverPosition, t time.Time) Sample {
	// Julian Date and GMST are shared by both bodies.
	jd := transform.JulianDate(t)
	gmst := transform.GMSTFromJD(jd)

	sun := SunPosition(jd)
	moon := MoonPosition(jd)

	return Sample{
		Time:       t,
		SunAltDeg:  transform.DirectionToLookAngles(obs, sun.DirectionECEF(gmst)).AltitudeDeg,
		MoonAltDeg: transform.ECEFToLookAngles(obs, moon.PositionECEF(gmst)).AltitudeDeg,
		MoonIllum:  MoonIllumination(sun, moon),
	}
}
