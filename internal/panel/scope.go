package panel

import (
	"math"
	"sync/atomic"
)

// Scope is a mono ring buffer written by the audio tap and read by the
// drawing goroutine. Writes never block; a reader may see a window that
// straddles a concurrent write, which only shows up as a glitch on screen.
type Scope struct {
	channels atomic.Int32
	ring     []atomic.Uint32
	writePos atomic.Uint64
}

func NewScope(size, channels int) *Scope {
	if size < 2 {
		size = 2
	}
	if channels < 1 {
		channels = 1
	}
	s := &Scope{ring: make([]atomic.Uint32, size)}
	s.channels.Store(int32(channels))
	return s
}

// SetChannels changes the frame stride Tap reads with, for when the backend
// negotiated a different channel count than was asked for.
func (s *Scope) SetChannels(channels int) {
	if channels >= 1 {
		s.channels.Store(int32(channels))
	}
}

// Tap stores the first channel of each frame. It is meant to be installed
// with WithSampleTap and runs on the audio goroutine.
func (s *Scope) Tap(samples []float32) {
	pos := s.writePos.Load()
	n := uint64(len(s.ring))
	stride := int(s.channels.Load())
	for i := 0; i < len(samples); i += stride {
		s.ring[pos%n].Store(math.Float32bits(samples[i]))
		pos++
	}
	s.writePos.Store(pos)
}

// Snapshot copies the most recent len(dst) samples into dst, oldest first.
func (s *Scope) Snapshot(dst []float32) []float32 {
	n := uint64(len(s.ring))
	if uint64(len(dst)) > n {
		dst = dst[:n]
	}
	end := s.writePos.Load()
	start := end - uint64(len(dst))
	if end < uint64(len(dst)) {
		start = 0
		dst = dst[:end]
	}
	for i := range dst {
		dst[i] = math.Float32frombits(s.ring[(start+uint64(i))%n].Load())
	}
	return dst
}

// Trigger finds a rising zero crossing in the first searchLen samples so a
// periodic waveform is drawn at a stable offset. It returns 0 when none is
// found.
func Trigger(samples []float32, searchLen int) int {
	if searchLen > len(samples)-2 {
		searchLen = len(samples) - 2
	}
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}
