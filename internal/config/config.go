// Package config loads the instrument's startup configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/golang/glog"

	"github.com/cbegin/virtsynth-go/internal/audio"
	"github.com/cbegin/virtsynth-go/internal/engine"
	"github.com/cbegin/virtsynth-go/internal/keymap"
	"github.com/cbegin/virtsynth-go/internal/osc"
)

type Config struct {
	Audio      Audio        `toml:"audio"`
	Synth      Synth        `toml:"synth"`
	Oscillator []Oscillator `toml:"oscillator"`
	Keyboard   Keyboard     `toml:"keyboard"`
}

type Audio struct {
	Backend      string `toml:"backend"`
	SampleRate   int    `toml:"sample_rate"`
	Channels     int    `toml:"channels"`
	BufferFrames int    `toml:"buffer_frames"`
}

type Synth struct {
	MasterGain  float64 `toml:"master_gain"`
	Attack      float64 `toml:"attack"`
	Decay       float64 `toml:"decay"`
	Sustain     float64 `toml:"sustain"`
	Release     float64 `toml:"release"`
	PhasePolicy string  `toml:"phase_policy"`
}

// Oscillator fields left out of the file keep the default for that slot.
type Oscillator struct {
	Waveform string   `toml:"waveform"`
	Active   *bool    `toml:"active"`
	Gain     *float64 `toml:"gain"`
}

type Keyboard struct {
	Layout string `toml:"layout"`
	HoldMS int    `toml:"hold_ms"`
}

const maxStageSec = 60

func Default() Config {
	p := engine.DefaultParams()
	cfg := Config{
		Audio: Audio{
			Backend:      "ebiten",
			SampleRate:   audio.DefaultSampleRate,
			Channels:     audio.DefaultChannels,
			BufferFrames: audio.DefaultBufferFrames,
		},
		Synth: Synth{
			MasterGain:  p.MasterGain,
			Attack:      p.Envelope.AttackSec,
			Decay:       p.Envelope.DecaySec,
			Sustain:     p.Envelope.SustainLvl,
			Release:     p.Envelope.ReleaseSec,
			PhasePolicy: p.PhasePolicy.String(),
		},
		Keyboard: Keyboard{
			Layout: keymap.DefaultLayout,
			HoldMS: int(keymap.DefaultHold / time.Millisecond),
		},
	}
	for _, o := range p.Oscillators {
		active, gain := o.Active, o.Gain
		cfg.Oscillator = append(cfg.Oscillator, Oscillator{Waveform: o.Waveform.String(), Active: &active, Gain: &gain})
	}
	return cfg
}

// Load reads and validates a TOML file on top of Default.
func Load(file string) (Config, error) {
	bs, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read file at %q: %w", file, err)
	}
	cfg, err := Parse(string(bs))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", file, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, or Default when file is empty.
func LoadOrDefault(file string) (Config, error) {
	if file == "" {
		return Default(), nil
	}
	return Load(file)
}

func Parse(data string) (Config, error) {
	cfg := Default()
	cfg.Oscillator = nil
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("config: ignoring unknown key %q", key.String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Audio.Backend != "" && !slices.Contains(audio.Names(), audio.BackendName(c.Audio.Backend)) {
		errs = append(errs, fmt.Errorf("audio.backend %q is not one of %v", c.Audio.Backend, audio.Names()))
	}
	if r := c.Audio.SampleRate; r != 0 && (r < 8000 || r > 384000) {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d outside [8000, 384000]", r))
	}
	if ch := c.Audio.Channels; ch < 0 || ch > 32 {
		errs = append(errs, fmt.Errorf("audio.channels %d outside [0, 32]", ch))
	}
	if f := c.Audio.BufferFrames; f != 0 && (f < 16 || f > 16384) {
		errs = append(errs, fmt.Errorf("audio.buffer_frames %d outside [16, 16384]", f))
	}

	unit := func(name string, v float64) {
		if math.IsNaN(v) || v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s %v outside [0, 1]", name, v))
		}
	}
	stage := func(name string, v float64) {
		if math.IsNaN(v) || v < 0 || v > maxStageSec {
			errs = append(errs, fmt.Errorf("%s %v outside [0, %d] seconds", name, v, maxStageSec))
		}
	}
	unit("synth.master_gain", c.Synth.MasterGain)
	stage("synth.attack", c.Synth.Attack)
	stage("synth.decay", c.Synth.Decay)
	unit("synth.sustain", c.Synth.Sustain)
	stage("synth.release", c.Synth.Release)
	if _, err := engine.ParsePhasePolicy(c.Synth.PhasePolicy); err != nil {
		errs = append(errs, fmt.Errorf("synth.phase_policy: %w", err))
	}

	if len(c.Oscillator) > osc.Count {
		errs = append(errs, fmt.Errorf("%d oscillators configured, at most %d supported", len(c.Oscillator), osc.Count))
	}
	for i, o := range c.Oscillator {
		if o.Waveform != "" {
			if _, err := osc.ParseWaveform(o.Waveform); err != nil {
				errs = append(errs, fmt.Errorf("oscillator %d: %w", i+1, err))
			}
		}
		if o.Gain != nil {
			unit(fmt.Sprintf("oscillator %d gain", i+1), *o.Gain)
		}
	}

	if _, err := keymap.ParseLayout(c.Keyboard.Layout); err != nil {
		errs = append(errs, fmt.Errorf("keyboard.layout: %w", err))
	}
	if c.Keyboard.HoldMS < 0 {
		errs = append(errs, fmt.Errorf("keyboard.hold_ms %d is negative", c.Keyboard.HoldMS))
	}
	return errors.Join(errs...)
}

// EngineParams converts the synth and oscillator sections. Oscillator slots
// beyond the configured ones keep their defaults.
func (c Config) EngineParams() (engine.Params, error) {
	p := engine.DefaultParams()
	p.MasterGain = c.Synth.MasterGain
	p.Envelope.AttackSec = c.Synth.Attack
	p.Envelope.DecaySec = c.Synth.Decay
	p.Envelope.SustainLvl = c.Synth.Sustain
	p.Envelope.ReleaseSec = c.Synth.Release
	policy, err := engine.ParsePhasePolicy(c.Synth.PhasePolicy)
	if err != nil {
		return p, err
	}
	p.PhasePolicy = policy
	if len(c.Oscillator) > osc.Count {
		return p, fmt.Errorf("%d oscillators configured, at most %d supported", len(c.Oscillator), osc.Count)
	}
	for i, o := range c.Oscillator {
		if o.Waveform != "" {
			w, err := osc.ParseWaveform(o.Waveform)
			if err != nil {
				return p, fmt.Errorf("oscillator %d: %w", i+1, err)
			}
			p.Oscillators[i].Waveform = w
		}
		if o.Active != nil {
			p.Oscillators[i].Active = *o.Active
		}
		if o.Gain != nil {
			p.Oscillators[i].Gain = *o.Gain
		}
	}
	return p, nil
}

func (c Config) AudioConfig() audio.Config {
	return audio.Config{
		Backend:      c.Audio.Backend,
		SampleRate:   c.Audio.SampleRate,
		Channels:     c.Audio.Channels,
		BufferFrames: c.Audio.BufferFrames,
	}
}

// RenderAudio is AudioConfig with zero values replaced by the defaults.
// Offline rendering has no device to negotiate them with.
func (c Config) RenderAudio() audio.Config { return audio.WithDefaults(c.AudioConfig()) }

func (c Config) Layout() (keymap.Layout, error) { return keymap.ParseLayout(c.Keyboard.Layout) }

func (c Config) Hold() time.Duration { return time.Duration(c.Keyboard.HoldMS) * time.Millisecond }
