package virtsynth

import (
	"errors"
	"sync"

	log "github.com/golang/glog"

	intaudio "github.com/cbegin/virtsynth-go/internal/audio"
	intengine "github.com/cbegin/virtsynth-go/internal/engine"
	intnote "github.com/cbegin/virtsynth-go/internal/note"
	intosc "github.com/cbegin/virtsynth-go/internal/osc"
)

type (
	Note        = intnote.Note
	NoteSet     = intnote.Set
	Waveform    = intosc.Waveform
	Params      = intengine.Params
	PhasePolicy = intengine.PhasePolicy
)

const (
	Sine     = intosc.Sine
	Square   = intosc.Square
	Saw      = intosc.Saw
	Triangle = intosc.Triangle

	PhaseResetOnAttack = intengine.PhaseResetOnAttack
	PhaseFree          = intengine.PhaseFree

	// OscillatorCount is the size of the oscillator bank.
	OscillatorCount = intosc.Count
)

func DefaultParams() Params { return intengine.DefaultParams() }

type Option func(*synthConfig)

type synthConfig struct {
	audio     intaudio.Config
	params    Params
	sampleTap func([]float32)
}

func defaultSynthConfig() synthConfig {
	return synthConfig{params: intengine.DefaultParams()}
}

// WithBackend selects the audio backend by name: ebiten, oto, portaudio,
// beep or null.
func WithBackend(name string) Option {
	return func(cfg *synthConfig) {
		cfg.audio.Backend = name
	}
}

// WithSampleRate requests a sample rate. The backend may negotiate another;
// see Synth.SampleRate.
func WithSampleRate(rate int) Option {
	return func(cfg *synthConfig) {
		cfg.audio.SampleRate = rate
	}
}

func WithChannels(channels int) Option {
	return func(cfg *synthConfig) {
		cfg.audio.Channels = channels
	}
}

// WithBufferFrames sets the callback buffer size, which is also the
// granularity at which note changes are observed.
func WithBufferFrames(frames int) Option {
	return func(cfg *synthConfig) {
		cfg.audio.BufferFrames = frames
	}
}

func WithAudioConfig(c intaudio.Config) Option {
	return func(cfg *synthConfig) {
		cfg.audio = c
	}
}

func WithParams(p Params) Option {
	return func(cfg *synthConfig) {
		cfg.params = p
	}
}

func WithPhasePolicy(policy PhasePolicy) Option {
	return func(cfg *synthConfig) {
		cfg.params.PhasePolicy = policy
	}
}

// WithSampleTap installs a callback invoked with each generated buffer.
// The callback runs on the audio goroutine; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *synthConfig) {
		cfg.sampleTap = tap
	}
}

// tapSource forwards every rendered buffer to a tap.
type tapSource struct {
	src intaudio.SampleSource
	tap func([]float32)
}

func (s tapSource) Fill(dst []float32, channels int) {
	s.src.Fill(dst, channels)
	s.tap(dst)
}

// Synth is a running instrument. Its setters are safe to call from any
// goroutine and never block the audio stream.
type Synth struct {
	controls *intengine.Controls
	engine   *intengine.Engine
	backend  intaudio.Backend

	closeOnce sync.Once
	closeErr  error
}

// New opens the audio backend, builds the engine at the negotiated format
// and starts the stream.
func New(opts ...Option) (*Synth, error) {
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	backend, err := intaudio.Open(cfg.audio)
	if err != nil {
		return nil, err
	}
	controls := intengine.NewControls(cfg.params)
	eng, err := intengine.New(backend.SampleRate(), controls)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	var src intaudio.SampleSource = eng
	if cfg.sampleTap != nil {
		src = tapSource{src: eng, tap: cfg.sampleTap}
	}
	if err := backend.Start(src); err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	log.V(1).Infof("virtsynth: started on %s, %d Hz, %d channels, phase policy %v",
		backend.Name(), backend.SampleRate(), backend.Channels(), cfg.params.PhasePolicy)
	return &Synth{controls: controls, engine: eng, backend: backend}, nil
}

// SetActiveNotes replaces the set of held notes.
func (s *Synth) SetActiveNotes(notes NoteSet) { s.controls.Notes.Store(notes) }

func (s *Synth) ActiveNotes() NoteSet { return s.controls.Notes.Snapshot() }

func (s *Synth) SetMasterGain(gain float64) { s.controls.MasterGain.Store(float32(gain)) }

// SetOscillatorWaveform sets the waveform of oscillator i (0-based). Out of
// range indices are ignored, as are invalid waveforms.
func (s *Synth) SetOscillatorWaveform(i int, w Waveform) {
	if i < 0 || i >= intosc.Count || !w.Valid() {
		return
	}
	s.controls.Oscillators[i].Waveform.Store(w)
}

func (s *Synth) SetOscillatorActive(i int, active bool) {
	if i < 0 || i >= intosc.Count {
		return
	}
	s.controls.Oscillators[i].Active.Store(active)
}

func (s *Synth) SetOscillatorGain(i int, gain float64) {
	if i < 0 || i >= intosc.Count {
		return
	}
	s.controls.Oscillators[i].Gain.Store(float32(gain))
}

// SetAttack sets the attack time in seconds.
func (s *Synth) SetAttack(sec float64) { s.controls.Envelope.Attack.Store(float32(sec)) }

// SetDecay sets the decay time in seconds.
func (s *Synth) SetDecay(sec float64) { s.controls.Envelope.Decay.Store(float32(sec)) }

// SetSustain sets the sustain level in [0,1].
func (s *Synth) SetSustain(level float64) { s.controls.Envelope.Sustain.Store(float32(level)) }

// SetRelease sets the release time in seconds.
func (s *Synth) SetRelease(sec float64) { s.controls.Envelope.Release.Store(float32(sec)) }

// SetPhasePolicy switches the policy from the next buffer on. Unknown
// policies are ignored.
func (s *Synth) SetPhasePolicy(policy PhasePolicy) {
	if policy.Valid() {
		s.controls.PhasePolicy.Store(policy)
	}
}

// Params reads back the current parameter values.
func (s *Synth) Params() Params { return s.controls.Params() }

func (s *Synth) SampleRate() int   { return s.backend.SampleRate() }
func (s *Synth) Channels() int     { return s.backend.Channels() }
func (s *Synth) BufferFrames() int { return s.backend.BufferFrames() }
func (s *Synth) Backend() string   { return s.backend.Name() }

// Close stops the stream. It is safe to call more than once.
func (s *Synth) Close() error {
	s.closeOnce.Do(func() {
		s.controls.Notes.Store(0)
		s.closeErr = s.backend.Close()
		log.V(1).Infof("virtsynth: %s backend closed", s.backend.Name())
	})
	return s.closeErr
}
