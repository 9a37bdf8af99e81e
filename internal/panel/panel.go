// Package panel holds the front-end independent parts of the interactive
// instrument: the parameter panel driven by arrow keys and the scope ring
// filled from the audio tap.
package panel

import (
	"fmt"
	"math"

	"github.com/cbegin/virtsynth-go/internal/engine"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/osc"
)

// Instrument is the part of a running synth the panel edits.
type Instrument interface {
	Params() engine.Params
	ActiveNotes() note.Set
	SetActiveNotes(note.Set)
	SetMasterGain(float64)
	SetAttack(float64)
	SetDecay(float64)
	SetSustain(float64)
	SetRelease(float64)
	SetOscillatorWaveform(int, osc.Waveform)
	SetOscillatorActive(int, bool)
	SetOscillatorGain(int, float64)
	SetPhasePolicy(engine.PhasePolicy)
}

type Arrow int

const (
	Up Arrow = iota
	Down
	Left
	Right
)

type row int

const (
	rowMaster row = iota
	rowAttack
	rowDecay
	rowSustain
	rowRelease
	rowOsc1
	rowOsc2
	rowOsc3
	numRows
)

const (
	gainStep   = 0.05
	timeStep   = 0.01
	timeCoarse = 0.1
	maxStage   = 5.0
)

type Panel struct {
	inst     Instrument
	selected row
}

func New(inst Instrument) *Panel {
	return &Panel{inst: inst}
}

// Selected returns the highlighted row index.
func (p *Panel) Selected() int { return int(p.selected) }

// Arrow moves the selection (up/down) or adjusts the selected value
// (left/right).
func (p *Panel) Arrow(a Arrow) {
	switch a {
	case Up:
		p.selected = (p.selected + numRows - 1) % numRows
	case Down:
		p.selected = (p.selected + 1) % numRows
	case Left:
		p.adjust(-1)
	case Right:
		p.adjust(1)
	}
}

func (p *Panel) adjust(dir float64) {
	params := p.inst.Params()
	env := params.Envelope
	switch p.selected {
	case rowMaster:
		p.inst.SetMasterGain(step(params.MasterGain, dir*gainStep, 1))
	case rowAttack:
		p.inst.SetAttack(step(env.AttackSec, dir*timeStepFor(env.AttackSec, dir), maxStage))
	case rowDecay:
		p.inst.SetDecay(step(env.DecaySec, dir*timeStepFor(env.DecaySec, dir), maxStage))
	case rowSustain:
		p.inst.SetSustain(step(env.SustainLvl, dir*gainStep, 1))
	case rowRelease:
		p.inst.SetRelease(step(env.ReleaseSec, dir*timeStepFor(env.ReleaseSec, dir), maxStage))
	case rowOsc1, rowOsc2, rowOsc3:
		i := int(p.selected - rowOsc1)
		p.inst.SetOscillatorGain(i, step(params.Oscillators[i].Gain, dir*gainStep, 1))
	}
}

// timeStepFor uses coarse steps above one second.
func timeStepFor(v, dir float64) float64 {
	if v > 1 || (v == 1 && dir > 0) {
		return timeCoarse
	}
	return timeStep
}

func step(v, delta, hi float64) float64 {
	v = math.Round((v+delta)*1000) / 1000
	return math.Max(0, math.Min(hi, v))
}

// Rune handles the non-note command keys: 1-3 toggle an oscillator, w
// cycles the waveform of the selected (or first) oscillator and p flips the
// phase policy. It reports whether r was a command.
func (p *Panel) Rune(r rune) bool {
	switch r {
	case '1', '2', '3':
		i := int(r - '1')
		p.inst.SetOscillatorActive(i, !p.inst.Params().Oscillators[i].Active)
	case 'w', 'W':
		i := 0
		if p.selected >= rowOsc1 {
			i = int(p.selected - rowOsc1)
		}
		p.inst.SetOscillatorWaveform(i, p.inst.Params().Oscillators[i].Waveform.Next())
	case 'p', 'P':
		policy := engine.PhaseFree
		if p.inst.Params().PhasePolicy == engine.PhaseFree {
			policy = engine.PhaseResetOnAttack
		}
		p.inst.SetPhasePolicy(policy)
	default:
		return false
	}
	return true
}

// Lines renders the panel as text, one row per parameter, with the
// selection marked.
func (p *Panel) Lines() []string {
	params := p.inst.Params()
	env := params.Envelope
	rows := [numRows]string{
		fmt.Sprintf("master gain  %5.2f", params.MasterGain),
		fmt.Sprintf("attack       %5.2f s", env.AttackSec),
		fmt.Sprintf("decay        %5.2f s", env.DecaySec),
		fmt.Sprintf("sustain      %5.2f", env.SustainLvl),
		fmt.Sprintf("release      %5.2f s", env.ReleaseSec),
	}
	for i, o := range params.Oscillators {
		state := "off"
		if o.Active {
			state = "on"
		}
		rows[int(rowOsc1)+i] = fmt.Sprintf("osc %d  %-8s %-3s %5.2f", i+1, o.Waveform, state, o.Gain)
	}
	out := make([]string, 0, numRows+2)
	for i, r := range rows {
		mark := "  "
		if row(i) == p.selected {
			mark = "> "
		}
		out = append(out, mark+r)
	}
	out = append(out,
		fmt.Sprintf("  phase        %s", params.PhasePolicy),
		fmt.Sprintf("  notes        %v", p.inst.ActiveNotes()),
	)
	return out
}
