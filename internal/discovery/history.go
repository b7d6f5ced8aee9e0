// internal/discovery/history.go
package discovery

import (
	"sync"
	"time"
)

// Point is one liquidity observation.
type Point struct {
	Time            time.Time
	TotalAdaReserve uint64
	TokenCount      int
}

// LiquidityHistory keeps a bounded in-memory series of per-poll
// liquidity totals for trend display.
type LiquidityHistory struct {
	mu        sync.RWMutex
	points    []Point
	maxPoints int
}

// NewLiquidityHistory creates a history holding up to maxPoints
// observations.
func NewLiquidityHistory(maxPoints int) *LiquidityHistory {
	return &LiquidityHistory{
		points:    make([]Point, 0, maxPoints),
		maxPoints: maxPoints,
	}
}

// Record appends an observation, evicting the oldest when full.
func (h *LiquidityHistory) Record(p Point) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.points) >= h.maxPoints {
		h.points = h.points[1:]
	}
	h.points = append(h.points, p)
}

// Recent returns up to limit most recent points, oldest first.
func (h *LiquidityHistory) Recent(limit int) []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.points) {
		limit = len(h.points)
	}
	start := len(h.points) - limit

	result := make([]Point, limit)
	copy(result, h.points[start:])
	return result
}

// Latest returns the most recent point.
func (h *LiquidityHistory) Latest() (Point, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.points) == 0 {
		return Point{}, false
	}
	return h.points[len(h.points)-1], true
}
