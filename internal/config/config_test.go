package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/virtsynth-go/internal/audio"
	"github.com/cbegin/virtsynth-go/internal/engine"
	"github.com/cbegin/virtsynth-go/internal/note"
	"github.com/cbegin/virtsynth-go/internal/osc"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
	p, err := cfg.EngineParams()
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	if p != engine.DefaultParams() {
		t.Fatalf("EngineParams = %+v, want %+v", p, engine.DefaultParams())
	}
	if cfg.Hold() != 150*time.Millisecond {
		t.Fatalf("Hold() = %v", cfg.Hold())
	}
}

const sample = `
[audio]
backend = "null"
sample_rate = 44100
buffer_frames = 256

[synth]
master_gain = 0.75
attack = 0.02
sustain = 0.6
phase_policy = "free"

[[oscillator]]
waveform = "square"
gain = 0.5

[[oscillator]]
waveform = "tri"
active = true

[keyboard]
layout = "awsedftgyhuj"
`

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a := cfg.AudioConfig()
	if a.Backend != "null" || a.SampleRate != 44100 || a.Channels != 2 || a.BufferFrames != 256 {
		t.Fatalf("AudioConfig = %+v", a)
	}
	p, err := cfg.EngineParams()
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	if p.MasterGain != 0.75 || p.Envelope.AttackSec != 0.02 || p.Envelope.SustainLvl != 0.6 {
		t.Fatalf("synth section not applied: %+v", p)
	}
	if p.Envelope.ReleaseSec != 0.1 {
		t.Fatalf("release should keep its default, got %v", p.Envelope.ReleaseSec)
	}
	if p.PhasePolicy != engine.PhaseFree {
		t.Fatalf("PhasePolicy = %v", p.PhasePolicy)
	}
	want := [osc.Count]osc.Params{
		{Waveform: osc.Square, Active: true, Gain: 0.5},
		{Waveform: osc.Triangle, Active: true, Gain: 1},
		{Waveform: osc.Sine, Active: false, Gain: 1},
	}
	if p.Oscillators != want {
		t.Fatalf("Oscillators = %+v, want %+v", p.Oscillators, want)
	}
	l, err := cfg.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if n, _ := l.Note('a'); n != note.C4 {
		t.Fatalf("layout not applied: 'a' -> %v", n)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := Parse(`
[audio]
backend = "jack"
sample_rate = 100

[synth]
master_gain = 2.0
attack = -1.0

[[oscillator]]
waveform = "noise"

[keyboard]
layout = "abc"
`)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, frag := range []string{"audio.backend", "audio.sample_rate", "synth.master_gain", "synth.attack", "oscillator 1", "keyboard.layout"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q does not mention %s", err, frag)
		}
	}
}

func TestTooManyOscillators(t *testing.T) {
	if _, err := Parse(strings.Repeat("[[oscillator]]\nwaveform = \"saw\"\n", 4)); err == nil {
		t.Fatal("expected error for four oscillators")
	}
}

func TestParseSyntaxError(t *testing.T) {
	if _, err := Parse("[audio\nbackend ="); err == nil {
		t.Fatal("expected TOML syntax error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "virtsynth.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("sample rate = %d", cfg.Audio.SampleRate)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Audio.Backend != "ebiten" || len(cfg.Oscillator) != 3 {
		t.Fatalf("LoadOrDefault(\"\") = %+v, want defaults", cfg)
	}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBackendNameIsCaseInsensitive(t *testing.T) {
	cfg, err := Parse("[audio]\nbackend = \" Oto \"\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := audio.BackendName(cfg.AudioConfig().Backend); got != "oto" {
		t.Fatalf("backend resolves to %q, want oto", got)
	}
}

func TestRenderAudioFillsZeroValues(t *testing.T) {
	cfg, err := Parse("[audio]\nsample_rate = 0\nchannels = 0\nbuffer_frames = 0\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := cfg.RenderAudio()
	if got.SampleRate != audio.DefaultSampleRate || got.Channels != audio.DefaultChannels || got.BufferFrames != audio.DefaultBufferFrames {
		t.Fatalf("RenderAudio = %+v, want package defaults", got)
	}

	cfg.Audio.SampleRate = 22050
	if got := cfg.RenderAudio().SampleRate; got != 22050 {
		t.Fatalf("configured sample rate replaced: %d", got)
	}
}
