// Package audio connects a SampleSource to an output device. Backends own
// the platform stream and pull interleaved float32 buffers from the source on
// their own goroutine.
package audio

import (
	"fmt"
	"sort"
	"strings"
)

// SampleSource produces interleaved audio. Fill is called on the audio
// goroutine and must not block.
type SampleSource interface {
	Fill(dst []float32, channels int)
}

// SampleSourceFunc adapts a function to SampleSource.
type SampleSourceFunc func(dst []float32, channels int)

func (f SampleSourceFunc) Fill(dst []float32, channels int) { f(dst, channels) }

const (
	DefaultSampleRate   = 48000
	DefaultChannels     = 2
	DefaultBufferFrames = 512
)

// Config selects a backend and the stream format to request from it. Zero
// values pick the backend's default. Backends may override the request;
// the negotiated values are reported by the returned Backend.
type Config struct {
	Backend      string
	SampleRate   int
	Channels     int
	BufferFrames int
}

// Backend is an opened, not yet started, output stream.
type Backend interface {
	Name() string
	SampleRate() int
	Channels() int
	BufferFrames() int
	// Start begins pulling audio from src. It may be called once.
	Start(src SampleSource) error
	Close() error
}

type opener func(Config) (Backend, error)

var backends = map[string]opener{
	"ebiten":    openEbiten,
	"oto":       openOto,
	"portaudio": openPortAudio,
	"beep":      openBeep,
	"null":      openNull,
}

// Names lists the registered backends.
func Names() []string {
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultBackend is used when no backend is named.
const DefaultBackend = "ebiten"

// BackendName normalises a backend name the way Open resolves it: case and
// surrounding space are ignored and an empty name means DefaultBackend.
func BackendName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultBackend
	}
	return name
}

// Open negotiates a stream with the named backend. An empty name selects
// ebiten.
func Open(cfg Config) (Backend, error) {
	name := BackendName(cfg.Backend)
	open, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown audio backend %q (expected %s)", cfg.Backend, strings.Join(Names(), "|"))
	}
	if cfg.SampleRate < 0 || cfg.Channels < 0 || cfg.BufferFrames < 0 {
		return nil, fmt.Errorf("audio: negative stream parameter in %+v", cfg)
	}
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = DefaultBufferFrames
	}
	b, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", name, err)
	}
	return b, nil
}

// WithDefaults fills zero stream parameters with the package defaults, for
// callers that render without a device to negotiate with.
func WithDefaults(cfg Config) Config { return withDefaults(cfg) }

func withDefaults(cfg Config) Config {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = DefaultChannels
	}
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = DefaultBufferFrames
	}
	return cfg
}
