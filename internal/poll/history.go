package poll

import (
	"sync"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
)

// DefaultHistorySize is the number of samples kept per series.
const DefaultHistorySize = 60

// History keeps recent summary-derived series for sparklines.
type History struct {
	mu   sync.RWMutex
	size int

	cpu   *ringBuffer
	ram   *ringBuffer
	netRx *ringBuffer
	netTx *ringBuffer

	// previous counters for rate derivation
	lastAt   time.Time
	lastRecv int64
	lastSent int64
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
}

// NewHistory creates a history keeping size samples per series.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	h := &History{size: size}
	h.reset()
	return h
}

func (h *History) reset() {
	h.cpu = newRingBuffer(h.size)
	h.ram = newRingBuffer(h.size)
	h.netRx = newRingBuffer(h.size)
	h.netTx = newRingBuffer(h.size)
	h.lastAt = time.Time{}
	h.lastRecv, h.lastSent = 0, 0
}

// Push records one summary taken at at. Network rates need two samples, so
// the first push only primes the counters.
func (h *History) Push(s *backend.SystemSummary, at time.Time) {
	if s == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cpu.push(s.CPUPercent)
	h.ram.push(s.MemPercent())

	if !h.lastAt.IsZero() {
		elapsed := at.Sub(h.lastAt).Seconds()
		if elapsed > 0 {
			h.netRx.push(rate(s.NetRecv-h.lastRecv, elapsed))
			h.netTx.push(rate(s.NetSent-h.lastSent, elapsed))
		}
	}
	h.lastAt = at
	h.lastRecv = s.NetRecv
	h.lastSent = s.NetSent
}

// rate treats a negative delta as a counter reset.
func rate(delta int64, seconds float64) float64 {
	if delta < 0 {
		return 0
	}
	return float64(delta) / seconds
}

// CPU returns up to n CPU percentages, oldest first.
func (h *History) CPU(n int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.last(n)
}

// RAM returns up to n memory-used percentages, oldest first.
func (h *History) RAM(n int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ram.last(n)
}

// Network returns up to n receive and transmit rates in bytes/s, oldest first.
func (h *History) Network(n int) (rx, tx []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.netRx.last(n), h.netTx.last(n)
}

// NetworkRate returns the latest receive and transmit rates, or zeros before
// two samples exist.
func (h *History) NetworkRate() (rx, tx float64) {
	r, t := h.Network(1)
	if len(r) == 0 {
		return 0, 0
	}
	return r[0], t[0]
}

// Len returns the number of CPU samples held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.count
}

// Clear drops every sample.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reset()
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size)}
}

func (r *ringBuffer) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// last returns the newest n values in chronological order.
func (r *ringBuffer) last(n int) []float64 {
	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}
	size := len(r.data)
	out := make([]float64, n)
	start := (r.head - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%size]
	}
	return out
}
