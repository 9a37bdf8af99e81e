package audio

import (
	"errors"
	"fmt"

	log "github.com/golang/glog"
	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct {
	cfg    Config
	device string
	stream *portaudio.Stream
	closed bool
}

// openPortAudio negotiates with the default output device: its default rate
// when none is requested, and at least two channels when the device has
// them.
func openPortAudio(cfg Config) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("default output device: %w", err)
	}
	if dev.MaxOutputChannels < 1 {
		portaudio.Terminate()
		return nil, fmt.Errorf("device %q has no output channels", dev.Name)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = int(dev.DefaultSampleRate)
	}
	if cfg.Channels == 0 {
		cfg.Channels = DefaultChannels
	}
	if cfg.Channels > dev.MaxOutputChannels {
		log.Warningf("audio: portaudio: %q supports %d channels, requested %d", dev.Name, dev.MaxOutputChannels, cfg.Channels)
		cfg.Channels = dev.MaxOutputChannels
	}
	cfg = withDefaults(cfg)
	log.Infof("audio: portaudio %q: %d channels, %d Hz, %d frame buffer", dev.Name, cfg.Channels, cfg.SampleRate, cfg.BufferFrames)
	return &portAudioBackend{cfg: cfg, device: dev.Name}, nil
}

func (b *portAudioBackend) Name() string      { return "portaudio" }
func (b *portAudioBackend) SampleRate() int   { return b.cfg.SampleRate }
func (b *portAudioBackend) Channels() int     { return b.cfg.Channels }
func (b *portAudioBackend) BufferFrames() int { return b.cfg.BufferFrames }

func (b *portAudioBackend) Start(src SampleSource) error {
	if b.stream != nil {
		return errors.New("portaudio backend already started")
	}
	channels := b.cfg.Channels
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(b.cfg.SampleRate), b.cfg.BufferFrames, func(out []float32) {
		src.Fill(out, channels)
	})
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	b.stream = stream
	return nil
}

func (b *portAudioBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	var err error
	if b.stream != nil {
		err = errors.Join(b.stream.Stop(), b.stream.Close())
	}
	return errors.Join(err, portaudio.Terminate())
}
