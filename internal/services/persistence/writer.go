package persistence

import (
	"log"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer wraps the async Influx WriteAPI and tracks the last write error for
// the health and readiness probes.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("persistence: influx write error: %v", err)
			}
		}
	}()
	return ww
}

// LastErrorAge reports how long ago the last write error occurred.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// MarkIngest bumps a per-vehicle counter, useful when debugging ingest.
func (w *Writer) MarkIngest(vehicleID string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[vehicleID]++
	w.mu.Unlock()
}

func (w *Writer) Count(vehicleID string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[vehicleID]
	w.mu.RUnlock()
	return c
}
