// Package envelope implements the per-note ADSR state machines.
package envelope

import (
	"math"

	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/param"
)

type State uint8

const (
	Released State = iota
	Pressed
	Decay
	Sustain
)

func (s State) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	default:
		return "released"
	}
}

// Params holds stage durations in seconds and the sustain level.
type Params struct {
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
}

func DefaultParams() Params {
	return Params{
		AttackSec:  0.1,
		DecaySec:   0,
		SustainLvl: 1,
		ReleaseSec: 0.1,
	}
}

// Controls are the live ADSR cells.
type Controls struct {
	Attack  param.Float
	Decay   param.Float
	Sustain param.Float
	Release param.Float
}

func (c *Controls) Set(p Params) {
	c.Attack.Store(float32(p.AttackSec))
	c.Decay.Store(float32(p.DecaySec))
	c.Sustain.Store(float32(p.SustainLvl))
	c.Release.Store(float32(p.ReleaseSec))
}

func (c *Controls) Params() Params {
	return Params{
		AttackSec:  float64(c.Attack.Load()),
		DecaySec:   float64(c.Decay.Load()),
		SustainLvl: float64(c.Sustain.Load()),
		ReleaseSec: float64(c.Release.Load()),
	}
}

// Snapshot reads the cells once and converts the stage durations to whole
// sample counts at sampleRate.
func (c *Controls) Snapshot(sampleRate float64) ADSR {
	return ADSR{
		Attack:  stageSamples(sampleRate, c.Attack.Load()),
		Decay:   stageSamples(sampleRate, c.Decay.Load()),
		Sustain: param.Unit(c.Sustain.Load()),
		Release: stageSamples(sampleRate, c.Release.Load()),
	}
}

func stageSamples(sampleRate float64, sec float32) int {
	n := math.Round(sampleRate * param.Seconds(sec))
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// ADSR is the per-buffer envelope configuration. Stage lengths are in
// samples; a length of 0 makes the stage instantaneous.
type ADSR struct {
	Attack  int
	Decay   int
	Sustain float64
	Release int
}

// Slot is the envelope of one note.
type Slot struct {
	state      State
	amplitude  float64
	tAmplitude float64 // amplitude when the current stage began
	position   int     // samples elapsed in the current stage
}

func (s *Slot) State() State        { return s.state }
func (s *Slot) Amplitude() float64 { return s.amplitude }

// Press starts the attack stage from the current amplitude. It reports
// whether a transition happened; pressing a held note is a no-op.
func (s *Slot) Press() bool {
	if s.state != Released {
		return false
	}
	s.state = Pressed
	s.position = 0
	s.tAmplitude = s.amplitude
	return true
}

// Release starts the release stage from the current amplitude. Releasing a
// released note is a no-op.
func (s *Slot) Release() bool {
	if s.state == Released {
		return false
	}
	s.state = Released
	s.position = 0
	s.tAmplitude = s.amplitude
	return true
}

// Tick advances the slot by one sample.
func (s *Slot) Tick(adsr *ADSR) {
	switch s.state {
	case Pressed:
		s.position++
		if s.position < adsr.Attack {
			s.amplitude += (1 - s.tAmplitude) / float64(adsr.Attack)
			s.clamp()
			return
		}
		s.amplitude = 1
		s.position = 0
		s.state = Decay
	case Decay:
		s.position++
		if s.position < adsr.Decay {
			s.amplitude -= (1 - adsr.Sustain) / float64(adsr.Decay)
			s.clamp()
			return
		}
		s.amplitude = adsr.Sustain
		s.position = 0
		s.state = Sustain
	case Sustain:
		s.amplitude = adsr.Sustain
	case Released:
		if s.amplitude == 0 {
			return
		}
		s.position++
		if s.position < adsr.Release {
			s.amplitude -= s.tAmplitude / float64(adsr.Release)
			s.clamp()
			return
		}
		s.amplitude = 0
	}
}

func (s *Slot) clamp() {
	if s.amplitude < 0 {
		s.amplitude = 0
	} else if s.amplitude > 1 {
		s.amplitude = 1
	}
}

// Tracker owns one Slot per note and advances all of them every sample.
// It is owned by the audio goroutine.
type Tracker struct {
	sampleRate float64
	controls   *Controls
	adsr       ADSR
	slots      [note.Count]Slot
}

func NewTracker(sampleRate int, controls *Controls) *Tracker {
	return &Tracker{
		sampleRate: float64(sampleRate),
		controls:   controls,
	}
}

// Update snapshots the ADSR cells and applies the pressed set: notes in keys
// are pressed, all others released. It returns the notes that started an
// attack from silence.
func (t *Tracker) Update(keys note.Set) (fromSilence note.Set) {
	t.adsr = t.controls.Snapshot(t.sampleRate)
	for i := range t.slots {
		n := note.Note(i)
		s := &t.slots[i]
		if keys.Has(n) {
			if s.amplitude == 0 && s.Press() {
				fromSilence = fromSilence.With(n)
			} else {
				s.Press()
			}
		} else {
			s.Release()
		}
	}
	return fromSilence
}

// Tick advances every slot by one sample and returns the slot array.
func (t *Tracker) Tick() *[note.Count]Slot {
	for i := range t.slots {
		t.slots[i].Tick(&t.adsr)
	}
	return &t.slots
}

// Slot returns the envelope of n.
func (t *Tracker) Slot(n note.Note) *Slot { return &t.slots[n] }

// ADSR returns the configuration captured by the last Update.
func (t *Tracker) ADSR() ADSR { return t.adsr }
