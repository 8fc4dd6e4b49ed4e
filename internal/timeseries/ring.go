package timeseries

import "github.com/micro-nova/templog/internal/models"

// ring is a fixed-capacity buffer that keeps the most recent samples pushed
// into it, overwriting slot count%capacity. Not safe for concurrent use.
type ring struct {
	buf   []models.Sample
	count int // total pushed since creation
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.Sample, capacity)}
}

func (r *ring) push(s models.Sample) {
	r.buf[r.count%len(r.buf)] = s
	r.count++
}

// len returns the number of retained samples.
func (r *ring) len() int {
	if r.count < len(r.buf) {
		return r.count
	}
	return len(r.buf)
}

// samples returns the retained samples oldest first.
func (r *ring) samples() []models.Sample {
	n := r.len()
	out := make([]models.Sample, n)
	if r.count <= len(r.buf) {
		copy(out, r.buf[:n])
		return out
	}
	// Oldest retained sample sits at the next write position.
	start := r.count % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
