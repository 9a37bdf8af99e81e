package virtsynth

import (
	"sync/atomic"
	"testing"
	"time"

	intnote "github.com/cbegin/virtsynth-go/internal/note"
)

func newNullSynth(t *testing.T, opts ...Option) *Synth {
	t.Helper()
	opts = append([]Option{WithBackend("null"), WithSampleRate(8000), WithChannels(1), WithBufferFrames(64)}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSynthParameterRuntimeAPI(t *testing.T) {
	s := newNullSynth(t)
	if got := s.Params(); got.MasterGain != 0.5 || got.Oscillators != DefaultParams().Oscillators {
		t.Fatalf("initial params = %+v, want defaults", got)
	}
	s.SetMasterGain(0.25)
	s.SetAttack(0.5)
	s.SetDecay(0.25)
	s.SetSustain(0.75)
	s.SetRelease(2)
	s.SetOscillatorWaveform(1, Saw)
	s.SetOscillatorActive(1, true)
	s.SetOscillatorGain(1, 0.5)
	s.SetPhasePolicy(PhaseFree)

	p := s.Params()
	if p.MasterGain != 0.25 || p.Envelope.AttackSec != 0.5 || p.Envelope.DecaySec != 0.25 ||
		p.Envelope.SustainLvl != 0.75 || p.Envelope.ReleaseSec != 2 {
		t.Fatalf("scalar params not applied: %+v", p)
	}
	if o := p.Oscillators[1]; o.Waveform != Saw || !o.Active || o.Gain != 0.5 {
		t.Fatalf("oscillator 2 = %+v", o)
	}
	if p.PhasePolicy != PhaseFree {
		t.Fatalf("PhasePolicy = %v", p.PhasePolicy)
	}

	// out of range writes are dropped
	s.SetOscillatorGain(3, 0.1)
	s.SetOscillatorWaveform(0, Waveform(42))
	s.SetPhasePolicy(PhasePolicy(9))
	if got := s.Params(); got != p {
		t.Fatalf("invalid writes changed params: %+v", got)
	}
}

func TestSynthNegotiatedFormat(t *testing.T) {
	s := newNullSynth(t)
	if s.Backend() != "null" || s.SampleRate() != 8000 || s.Channels() != 1 || s.BufferFrames() != 64 {
		t.Fatalf("negotiated %s %d Hz %d ch %d frames", s.Backend(), s.SampleRate(), s.Channels(), s.BufferFrames())
	}
}

func TestSynthSampleTapHearsNotes(t *testing.T) {
	var loud atomic.Bool
	tap := func(buf []float32) {
		for _, v := range buf {
			if v != 0 {
				loud.Store(true)
				return
			}
		}
	}
	p := DefaultParams()
	p.Envelope.AttackSec = 0
	s := newNullSynth(t, WithParams(p), WithSampleTap(tap))
	s.SetActiveNotes(intnote.A4.Bit())
	if got := s.ActiveNotes(); got != intnote.A4.Bit() {
		t.Fatalf("ActiveNotes = %v", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !loud.Load() {
		if time.Now().After(deadline) {
			t.Fatal("tap never saw a non-silent buffer")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSynthCloseIsIdempotent(t *testing.T) {
	s := newNullSynth(t)
	s.SetActiveNotes(intnote.All)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !s.ActiveNotes().Empty() {
		t.Fatal("Close should release every note")
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(WithBackend("coreaudio")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
