package gowait

import (
	"math"
	"sort"
	"sync"
)

// samples keeps a bounded buffer of duration measurements in nanoseconds
// and derives order and moment statistics from it.
type samples struct {
	buf  []uint64
	cap  uint32
	lock sync.Mutex
}

func newSamples(cap uint32) *samples {
	return &samples{cap: cap, buf: make([]uint64, 0, cap)}
}

func (s *samples) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.buf)
}

func (s *samples) Push(dim uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) >= int(s.cap) {
		s.buf = s.buf[1:]
	}
	s.buf = append(s.buf, dim)
}

// At returns percentile value at the provided pval in between 0.0 and 1.0.
func (s *samples) At(pval float64) uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) == 0 {
		return 0
	}
	buf := make([]uint64, len(s.buf))
	_ = copy(buf, s.buf)
	sort.Slice(buf, func(i, j int) bool {
		return buf[i] < buf[j]
	})
	at := int(math.Round(float64(len(buf)-1) * pval))
	return buf[at]
}

func (s *samples) Min() uint64 {
	return s.At(0.0)
}

func (s *samples) Max() uint64 {
	return s.At(1.0)
}

func (s *samples) Mean() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) == 0 {
		return 0
	}
	var sum float64
	for _, dim := range s.buf {
		sum += float64(dim)
	}
	return sum / float64(len(s.buf))
}

func (s *samples) Stddev() float64 {
	mean := s.Mean()
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) < 2 {
		return 0
	}
	var sum float64
	for _, dim := range s.buf {
		sum += (float64(dim) - mean) * (float64(dim) - mean)
	}
	return math.Sqrt(sum / float64(len(s.buf)-1))
}

func (s *samples) Prune() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.buf = make([]uint64, 0, s.cap)
}
