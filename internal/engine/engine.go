// Package engine mixes the oscillator bank across the twelve note slots into
// a mono signal that is duplicated over the output channels.
package engine

import (
	"errors"
	"math"

	"github.com/cbegin/virtsynth-go/internal/envelope"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/osc"
	"github.com/cbegin/virtsynth-go/internal/param"
)

type Params struct {
	MasterGain  float64
	Envelope    envelope.Params
	Oscillators [osc.Count]osc.Params
	PhasePolicy PhasePolicy
}

func DefaultParams() Params {
	return Params{
		MasterGain:  0.5,
		Envelope:    envelope.DefaultParams(),
		Oscillators: osc.DefaultParams(),
		PhasePolicy: PhaseResetOnAttack,
	}
}

// Controls is the table of cells shared between the writers (UI, scripts)
// and the audio goroutine. It is allocated once and lives as long as the
// engine that reads it.
type Controls struct {
	MasterGain  param.Float
	Envelope    envelope.Controls
	Oscillators [osc.Count]osc.Controls
	PhasePolicy PolicyCell
	Notes       note.Shared
}

func NewControls(p Params) *Controls {
	c := &Controls{}
	c.Set(p)
	return c
}

// Set stores every parameter. The note set is left untouched.
func (c *Controls) Set(p Params) {
	c.MasterGain.Store(float32(p.MasterGain))
	c.Envelope.Set(p.Envelope)
	for i := range c.Oscillators {
		c.Oscillators[i].Set(p.Oscillators[i])
	}
	c.PhasePolicy.Store(p.PhasePolicy)
}

func (c *Controls) Params() Params {
	p := Params{
		MasterGain:  float64(c.MasterGain.Load()),
		Envelope:    c.Envelope.Params(),
		PhasePolicy: c.PhasePolicy.Load(),
	}
	for i := range c.Oscillators {
		p.Oscillators[i] = c.Oscillators[i].Params()
	}
	return p
}

// Engine renders audio from a Controls table. Fill must only be called from
// one goroutine at a time.
type Engine struct {
	sampleRate int
	controls   *Controls
	tracker    *envelope.Tracker
	phases     PhaseStore
	increments [note.Count]float64

	// per-buffer snapshots
	oscs [osc.Count]osc.Oscillator
	gain float64
}

func New(sampleRate int, controls *Controls) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if controls == nil {
		return nil, errors.New("engine: nil controls")
	}
	e := &Engine{
		sampleRate: sampleRate,
		controls:   controls,
		tracker:    envelope.NewTracker(sampleRate, &controls.Envelope),
	}
	for n := note.Note(0); n < note.Count; n++ {
		e.increments[n] = n.Frequency() / float64(sampleRate)
	}
	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Controls() *Controls { return e.controls }

// Fill writes len(buf)/channels frames of interleaved audio. A trailing
// partial frame is filled as well. Fill never fails: channels < 1 yields
// silence and a non-finite mix is written as 0.
func (e *Engine) Fill(buf []float32, channels int) {
	if channels < 1 {
		clear(buf)
		return
	}
	attacked := e.tracker.Update(e.controls.Notes.Snapshot())
	if e.controls.PhasePolicy.Load() == PhaseResetOnAttack {
		e.phases.ResetSet(attacked)
	}
	e.gain = param.Unit(e.controls.MasterGain.Load())
	for i := range e.oscs {
		e.oscs[i] = e.controls.Oscillators[i].Snapshot()
	}

	for frame := 0; frame < len(buf); frame += channels {
		v := e.next()
		end := min(frame+channels, len(buf))
		for i := frame; i < end; i++ {
			buf[i] = v
		}
	}
}

func (e *Engine) next() float32 {
	slots := e.tracker.Tick()
	var signal, total float64
	for i := range slots {
		amp := slots[i].Amplitude()
		if amp == 0 {
			continue
		}
		n := note.Note(i)
		phase := e.phases.Phase(n)
		for j := range e.oscs {
			o := &e.oscs[j]
			if !o.Active {
				continue
			}
			signal += amp * o.Tick(phase)
			total += amp * o.Gain
		}
		e.phases.Advance(n, e.increments[i])
	}
	out := signal / math.Max(1, total) * e.gain
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return float32(out)
}

// Envelope exposes the slot of n for inspection between Fill calls.
func (e *Engine) Envelope(n note.Note) *envelope.Slot { return e.tracker.Slot(n) }

// Phase returns the accumulator of n.
func (e *Engine) Phase(n note.Note) float64 { return e.phases.Phase(n) }
