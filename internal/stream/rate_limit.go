package stream

import (
	"sync"

	"github.com/star/darksky/internal/store"
)

// Reasons acquire refuses a stream.
const (
	refusedGlobal   = "global"
	refusedClient   = "client"
	refusedLocation = "location"
)

// warmLimiter admits warmup streams. It caps streams per client IP and
// overall, and allows one stream per quantized location: a second warmup of
// the same key would only generate duplicate records for the same months.
type warmLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	warming  map[store.LocationKey]string // key -> IP holding it
	total    int
	maxPerIP int
	maxTotal int
}

func newWarmLimiter(maxPerIP, maxTotal int) *warmLimiter {
	return &warmLimiter{
		perIP:    make(map[string]int),
		warming:  make(map[store.LocationKey]string),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a stream from ip warming key. It returns "" on success,
// otherwise the limit that refused it.
func (l *warmLimiter) acquire(ip string, key store.LocationKey) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.total >= l.maxTotal:
		return refusedGlobal
	case l.perIP[ip] >= l.maxPerIP:
		return refusedClient
	}
	if _, busy := l.warming[key]; busy {
		return refusedLocation
	}

	l.perIP[ip]++
	l.warming[key] = ip
	l.total++
	return ""
}

func (l *warmLimiter) release(ip string, key store.LocationKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.warming, key)
	l.total--
	l.perIP[ip]--
	if l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// count returns the number of active streams for ip.
func (l *warmLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// warmingBy reports which IP is warming key, if any.
func (l *warmLimiter) warmingBy(key store.LocationKey) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ip, ok := l.warming[key]
	return ip, ok
}
