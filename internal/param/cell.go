// Package param holds the lock-free cells that carry live synthesis
// parameters from UI goroutines to the audio goroutine.
package param

import (
	"math"
	"sync/atomic"
)

// Codec maps a value onto the 32-bit word stored by a Cell.
// Implementations are zero-size types so a Cell costs one atomic word.
type Codec[T any] interface {
	Encode(v T) uint32
	Decode(bits uint32) T
}

// Cell is a single parameter shared between goroutines. Store and Load are
// wait-free and never observe a partially written value. Cells must not be
// copied after first use.
type Cell[T any, C Codec[T]] struct {
	bits atomic.Uint32
}

func NewCell[T any, C Codec[T]](v T) *Cell[T, C] {
	c := &Cell[T, C]{}
	c.Store(v)
	return c
}

func (c *Cell[T, C]) Store(v T) {
	var codec C
	c.bits.Store(codec.Encode(v))
}

func (c *Cell[T, C]) Load() T {
	var codec C
	return codec.Decode(c.bits.Load())
}

// Float32Codec stores a float32 as its IEEE-754 bit pattern.
type Float32Codec struct{}

func (Float32Codec) Encode(v float32) uint32    { return math.Float32bits(v) }
func (Float32Codec) Decode(bits uint32) float32 { return math.Float32frombits(bits) }

// BoolCodec stores a bool as 0 or 1. Any non-zero word reads back as true.
type BoolCodec struct{}

func (BoolCodec) Encode(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func (BoolCodec) Decode(bits uint32) bool { return bits != 0 }

type (
	Float = Cell[float32, Float32Codec]
	Bool  = Cell[bool, BoolCodec]
)

// Unit sanitises a level read from a cell: NaN becomes 0 and the result is
// clamped to [0,1].
func Unit(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Seconds sanitises a duration read from a cell: NaN, infinities and
// negative values become 0.
func Seconds(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
