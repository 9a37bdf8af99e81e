// Package osc implements the oscillator bank: waveform generators that are
// configured through shared cells and snapshotted once per buffer.
package osc

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbegin/virtsynth-go/internal/param"
)

const twoPi = math.Pi * 2

// Count is the number of oscillators in the bank.
const Count = 3

type Waveform int32

const (
	Sine Waveform = iota
	Square
	Saw
	Triangle

	numWaveforms
)

var waveformNames = [numWaveforms]string{"sine", "square", "saw", "triangle"}

func (w Waveform) Valid() bool { return w >= 0 && w < numWaveforms }

func (w Waveform) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Waveform(%d)", int32(w))
	}
	return waveformNames[w]
}

// Next cycles through the waveforms in declaration order.
func (w Waveform) Next() Waveform { return (w + 1) % numWaveforms }

func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "sqr":
		return Square, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "triangle", "tri":
		return Triangle, nil
	}
	return 0, fmt.Errorf("unknown waveform %q (expected sine|square|saw|triangle)", s)
}

// WaveformCodec stores a Waveform as its integer code. Decoding a code that
// no Waveform produces is an invariant violation and panics.
type WaveformCodec struct{}

func (WaveformCodec) Encode(w Waveform) uint32 {
	if !w.Valid() {
		panic(fmt.Sprintf("osc: storing invalid waveform %d", int32(w)))
	}
	return uint32(w)
}

func (WaveformCodec) Decode(bits uint32) Waveform {
	if bits >= uint32(numWaveforms) {
		panic(fmt.Sprintf("osc: invalid waveform code %d", bits))
	}
	return Waveform(bits)
}

type WaveformCell = param.Cell[Waveform, WaveformCodec]

// Sample evaluates one cycle of w at a normalised phase in [0,1).
func Sample(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*phase - 1
	case Triangle:
		return 2*math.Abs(2*phase-1) - 1
	default:
		return math.Sin(twoPi * phase)
	}
}

// Params is the plain-value configuration of one oscillator.
type Params struct {
	Waveform Waveform
	Active   bool
	Gain     float64
}

// DefaultParams returns the bank the instrument starts with: the first
// oscillator is an audible sine, the others are muted sines.
func DefaultParams() [Count]Params {
	return [Count]Params{
		{Waveform: Sine, Active: true, Gain: 1},
		{Waveform: Sine, Active: false, Gain: 1},
		{Waveform: Sine, Active: false, Gain: 1},
	}
}

// Controls are the live cells for one oscillator.
type Controls struct {
	Waveform WaveformCell
	Active   param.Bool
	Gain     param.Float
}

func (c *Controls) Set(p Params) {
	c.Waveform.Store(p.Waveform)
	c.Active.Store(p.Active)
	c.Gain.Store(float32(p.Gain))
}

func (c *Controls) Params() Params {
	return Params{
		Waveform: c.Waveform.Load(),
		Active:   c.Active.Load(),
		Gain:     float64(c.Gain.Load()),
	}
}

// Snapshot reads the cells once for the coming buffer.
func (c *Controls) Snapshot() Oscillator {
	return Oscillator{
		Waveform: c.Waveform.Load(),
		Active:   c.Active.Load(),
		Gain:     param.Unit(c.Gain.Load()),
	}
}

// Oscillator is the per-buffer snapshot the mixing loop evaluates.
type Oscillator struct {
	Waveform Waveform
	Active   bool
	Gain     float64
}

// Tick returns the gain-scaled waveform value at phase. An inactive
// oscillator returns 0.
func (o *Oscillator) Tick(phase float64) float64 {
	if !o.Active {
		return 0
	}
	return Sample(o.Waveform, phase) * o.Gain
}
