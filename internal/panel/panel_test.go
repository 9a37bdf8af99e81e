package panel

import (
	"math"
	"strings"
	"testing"

	"github.com/cbegin/virtsynth-go/internal/engine"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/osc"
)

// fakeInstrument writes straight into a Controls table.
type fakeInstrument struct{ c *engine.Controls }

func newFake() *fakeInstrument {
	return &fakeInstrument{c: engine.NewControls(engine.DefaultParams())}
}

func (f *fakeInstrument) Params() engine.Params     { return f.c.Params() }
func (f *fakeInstrument) ActiveNotes() note.Set     { return f.c.Notes.Snapshot() }
func (f *fakeInstrument) SetActiveNotes(s note.Set) { f.c.Notes.Store(s) }
func (f *fakeInstrument) SetMasterGain(v float64)   { f.c.MasterGain.Store(float32(v)) }
func (f *fakeInstrument) SetAttack(v float64)       { f.c.Envelope.Attack.Store(float32(v)) }
func (f *fakeInstrument) SetDecay(v float64)        { f.c.Envelope.Decay.Store(float32(v)) }
func (f *fakeInstrument) SetSustain(v float64)      { f.c.Envelope.Sustain.Store(float32(v)) }
func (f *fakeInstrument) SetRelease(v float64)      { f.c.Envelope.Release.Store(float32(v)) }
func (f *fakeInstrument) SetOscillatorWaveform(i int, w osc.Waveform) {
	f.c.Oscillators[i].Waveform.Store(w)
}
func (f *fakeInstrument) SetOscillatorActive(i int, a bool) { f.c.Oscillators[i].Active.Store(a) }
func (f *fakeInstrument) SetOscillatorGain(i int, v float64) {
	f.c.Oscillators[i].Gain.Store(float32(v))
}
func (f *fakeInstrument) SetPhasePolicy(p engine.PhasePolicy) { f.c.PhasePolicy.Store(p) }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestArrowsSelectAndAdjust(t *testing.T) {
	f := newFake()
	p := New(f)

	p.Arrow(Right) // master gain 0.5 -> 0.55
	if got := f.Params().MasterGain; !near(got, 0.55) {
		t.Fatalf("master gain = %v, want 0.55", got)
	}
	p.Arrow(Down)
	p.Arrow(Left) // attack 0.1 -> 0.09
	if got := f.Params().Envelope.AttackSec; !near(got, 0.09) {
		t.Fatalf("attack = %v, want 0.09", got)
	}
	p.Arrow(Up)
	p.Arrow(Up) // wraps to osc 3
	if p.Selected() != 7 {
		t.Fatalf("Selected() = %d, want 7", p.Selected())
	}
	p.Arrow(Left)
	if got := f.Params().Oscillators[2].Gain; !near(got, 0.95) {
		t.Fatalf("osc 3 gain = %v, want 0.95", got)
	}
}

func TestAdjustClamps(t *testing.T) {
	f := newFake()
	p := New(f)
	for i := 0; i < 30; i++ {
		p.Arrow(Right)
	}
	if got := f.Params().MasterGain; got != 1 {
		t.Fatalf("master gain = %v, want clamp at 1", got)
	}
	p.Arrow(Down)
	p.Arrow(Down) // decay starts at 0
	p.Arrow(Left)
	if got := f.Params().Envelope.DecaySec; got != 0 {
		t.Fatalf("decay = %v, want clamp at 0", got)
	}
}

func TestCommandRunes(t *testing.T) {
	f := newFake()
	p := New(f)
	if !p.Rune('2') || !f.Params().Oscillators[1].Active {
		t.Fatal("'2' should enable oscillator 2")
	}
	p.Rune('1')
	if f.Params().Oscillators[0].Active {
		t.Fatal("'1' should disable oscillator 1")
	}
	p.Rune('w')
	if got := f.Params().Oscillators[0].Waveform; got != osc.Square {
		t.Fatalf("waveform = %v, want square", got)
	}
	p.Arrow(Up) // osc 3
	p.Rune('W')
	if got := f.Params().Oscillators[2].Waveform; got != osc.Square {
		t.Fatalf("osc 3 waveform = %v, want square", got)
	}
	p.Rune('p')
	if f.Params().PhasePolicy != engine.PhaseFree {
		t.Fatal("'p' should switch to the free phase policy")
	}
	if p.Rune('z') {
		t.Fatal("'z' is a note key, not a command")
	}
}

func TestLinesMarkSelection(t *testing.T) {
	f := newFake()
	f.SetActiveNotes(note.C4.Bit())
	p := New(f)
	p.Arrow(Down)
	lines := p.Lines()
	if len(lines) != 10 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "> attack") {
		t.Fatalf("selected line = %q", lines[1])
	}
	if !strings.Contains(lines[5], "sine") || !strings.Contains(lines[5], "on") {
		t.Fatalf("osc line = %q", lines[5])
	}
	if !strings.Contains(lines[9], "{C4}") {
		t.Fatalf("notes line = %q", lines[9])
	}
}

func TestScopeKeepsLatestFirstChannel(t *testing.T) {
	s := NewScope(4, 2)
	s.Tap([]float32{1, -1, 2, -2, 3, -3})
	if got := s.Snapshot(make([]float32, 8)); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Snapshot = %v, want [1 2 3]", got)
	}
	s.Tap([]float32{4, 0, 5, 0, 6, 0})
	got := s.Snapshot(make([]float32, 4))
	want := []float32{3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot = %v, want %v", got, want)
		}
	}
}

func TestTrigger(t *testing.T) {
	if got := Trigger([]float32{0.5, -0.2, -0.1, 0.3, 0.6, 0.7}, 10); got != 3 {
		t.Fatalf("Trigger = %d, want 3", got)
	}
	if got := Trigger([]float32{1, 1, 1}, 10); got != 0 {
		t.Fatalf("Trigger = %d, want 0", got)
	}
}

func TestScopeSetChannels(t *testing.T) {
	s := NewScope(8, 2)
	s.SetChannels(1)
	s.SetChannels(0) // ignored
	s.Tap([]float32{1, 2, 3})
	if got := s.Snapshot(make([]float32, 8)); len(got) != 3 || got[1] != 2 {
		t.Fatalf("Snapshot = %v, want [1 2 3]", got)
	}
}
